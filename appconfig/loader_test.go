package appconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `{
	"app_id": "app1",
	"app_name": "App One",
	"hosts": [
		{"host": "a.example", "usage": "request"},
		"b.example"
	],
	"time_offset": 3600,
	"cors_options": {"enabled": true, "allowed_origin": "all"},
	"encryptions": [{"id": "k1", "secret": "s3cr3t", "name": "primary"}],
	"environments": {
		"staging": {"widgets": {"limit": 5}}
	},
	"widgets": {"limit": 10}
}`

func TestParseMainAndVariant(t *testing.T) {
	set, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "app1", set.Main.AppID)
	assert.Equal(t, "", set.Main.Environment)
	assert.ElementsMatch(t, []string{"a.example", "b.example"}, set.Main.RequestHosts())
	assert.True(t, set.Main.CorsOptions.Enabled)

	type widgets struct {
		Limit int `json:"limit"`
	}
	w, err := Module[widgets](set.Main.ModuleConfig, "widgets")
	require.NoError(t, err)
	assert.Equal(t, 10, w.Limit)

	staging := set.Resolve("staging")
	require.NotNil(t, staging)
	assert.Equal(t, "staging", staging.Environment)
	assert.Equal(t, "app1", staging.AppID, "variant shares the immutable base")

	sw, err := Module[widgets](staging.ModuleConfig, "widgets")
	require.NoError(t, err)
	assert.Equal(t, 5, sw.Limit, "variant overrides only the module store")
}

func TestParseRequiresAppID(t *testing.T) {
	_, err := Parse([]byte(`{"app_name": "no id"}`))
	assert.Error(t, err)
}

func TestParseArrayFormEnvironments(t *testing.T) {
	const doc = `{
		"app_id": "app2",
		"environments": [
			{"name": "prod", "widgets": {"limit": 99}}
		]
	}`
	set, err := Parse([]byte(doc))
	require.NoError(t, err)

	prod := set.Resolve("prod")
	require.NotNil(t, prod)

	type widgets struct {
		Limit int `json:"limit"`
	}
	w, err := Module[widgets](prod.ModuleConfig, "widgets")
	require.NoError(t, err)
	assert.Equal(t, 99, w.Limit)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	set, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	ciphertext, err := set.Main.Encrypt("primary", []byte("hello"))
	require.NoError(t, err)

	plaintext, err := set.Main.Decrypt("primary", ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(plaintext))
}

func TestDecryptUnknownKey(t *testing.T) {
	set, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	_, err = set.Main.Decrypt("missing", []byte("whatever"))
	assert.Error(t, err)
}
