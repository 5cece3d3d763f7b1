package apperrors

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatusByKind(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, InvalidParameter.HTTPStatus())
	assert.Equal(t, http.StatusUnauthorized, Unauthorized.HTTPStatus())
	assert.Equal(t, http.StatusNotFound, NotFound.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, Database.HTTPStatus())
	assert.Equal(t, http.StatusExpectationFailed, InvalidAppConfig.HTTPStatus())
}

func TestConvertOrWrapIdempotent(t *testing.T) {
	e1 := ConvertOrWrap(errors.New("boom"))
	e2 := ConvertOrWrap(e1)
	e3 := ConvertOrWrap(e2)

	assert.Same(t, e1, e2)
	assert.Same(t, e2, e3)
	assert.Equal(t, Internal, e1.Base())
}

func TestWrapChainsInnerAndMergesExtras(t *testing.T) {
	inner := NewDatabase(errors.New("conn refused")).WithExtra("table", "apps")
	outer := Wrap(Internal, inner)

	assert.Equal(t, Internal, outer.Base())
	assert.Same(t, inner, outer.Inner())
	assert.Equal(t, "apps", outer.Extras()["table"])
}

func TestCaptureStackFlag(t *testing.T) {
	SetCaptureCaller(false)
	e := NewInternal(errors.New("x"))
	assert.Empty(t, e.Stack())

	SetCaptureCaller(true)
	defer SetCaptureCaller(false)
	e = NewInternal(errors.New("x"))
	assert.NotEmpty(t, e.Stack())
}

func TestJSONBodyEnvelope(t *testing.T) {
	e := NewAppNotFound(errors.New("host c.example has no app"))
	var decoded map[string]string
	require.NoError(t, json.Unmarshal(e.JSONBody(), &decoded))
	assert.Equal(t, "app_not_found(host c.example has no app)", decoded["error"])
}

func TestPlainTextBodyIncludesExtras(t *testing.T) {
	e := NewInvalidParameter(errors.New("bad id")).WithExtra("field", "id")
	text := string(e.PlainTextBody())
	assert.Contains(t, text, "invalid_parameter(bad id)")
	assert.Contains(t, text, `field: "id"`)
}
