package reqcontext

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/gocrud/tenantengine/apperrors"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// Decode reads and validates the request body into T, following the
// contract in §4.3: a missing body or content-type is bad_request; a
// decode or validation failure is invalid_parameter.
func Decode[T any](c *Context, defaultContentType string) (T, error) {
	var value T

	if c.Request.Body == nil {
		return value, apperrors.NewBadRequest(fmt.Errorf("reqcontext: request has no body"))
	}

	// The body is read first so the RequestProcessor can fill in a missing
	// Content-Type (e.g. by sniffing) before it is checked.
	body, err := c.body()
	if err != nil {
		return value, apperrors.NewBadRequest(err)
	}

	contentType := c.Request.Header.Get("Content-Type")
	if contentType == "" {
		contentType = defaultContentType
	}
	if contentType == "" {
		return value, apperrors.NewBadRequest(fmt.Errorf("reqcontext: content-type is required"))
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}

	switch mediaType {
	case "application/json", "":
		if err := json.Unmarshal(body, &value); err != nil {
			return value, apperrors.NewInvalidParameter(err)
		}
	case "application/yaml", "application/x-yaml", "text/yaml":
		if err := yaml.Unmarshal(body, &value); err != nil {
			return value, apperrors.NewInvalidParameter(err)
		}
	default:
		return value, apperrors.NewBadRequest(fmt.Errorf("reqcontext: unsupported content-type %q", mediaType))
	}

	if err := getValidator().Struct(value); err != nil {
		return value, apperrors.NewInvalidParameter(err)
	}

	return value, nil
}

// body returns the (possibly processor-rewritten) request body, reading it
// once and caching the result so repeated Decode/processor calls are cheap
// (§4.3 "the processed body replaces the cached body on first access").
func (c *Context) body() ([]byte, error) {
	if c.cachedBody != nil {
		return c.cachedBody, nil
	}

	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}
	c.Request.Body.Close()

	processed := raw
	if c.Processor != nil && !c.bypassProcessing() {
		processed, err = c.Processor.ProcessRequest(c.Request, raw)
		if err != nil {
			return nil, err
		}
	}

	c.cachedBody = processed
	return processed, nil
}

// bypassProcessing reports whether the request carries the
// "X-Bypass-Body-Processing: 1" header. Only the header is checked; no
// debug-feature setting is consulted, so any client can skip processing.
func (c *Context) bypassProcessing() bool {
	return c.Request.Header.Get("X-Bypass-Body-Processing") == "1"
}
