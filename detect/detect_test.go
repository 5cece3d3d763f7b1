package detect

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHostDetectorResolvesRegisteredHost(t *testing.T) {
	d := NewHostDetector()
	d.Rebuild([]HostBinding{
		{Host: "a.example", AppID: "app1"},
		{Host: "b.example", AppID: "app2"},
	})

	req := httptest.NewRequest("GET", "/ping", nil)
	req.Host = "a.example"

	result := d.Detect(req)
	assert.True(t, result.Found)
	assert.Equal(t, "app1", result.AppID)
}

func TestHostDetectorUnknownHostNotFound(t *testing.T) {
	d := NewHostDetector()
	d.Rebuild([]HostBinding{{Host: "a.example", AppID: "app1"}})

	req := httptest.NewRequest("GET", "/ping", nil)
	req.Host = "c.example"

	result := d.Detect(req)
	assert.False(t, result.Found)
}

func TestHostDetectorStripsPort(t *testing.T) {
	d := NewHostDetector()
	d.Rebuild([]HostBinding{{Host: "a.example", AppID: "app1"}})

	req := httptest.NewRequest("GET", "/ping", nil)
	req.Host = "a.example:8080"

	result := d.Detect(req)
	assert.True(t, result.Found)
}

func TestHostDetectorDebugHostOverride(t *testing.T) {
	d := NewHostDetector()
	d.AllowDebugHostHeader = true
	d.Rebuild([]HostBinding{{Host: "staging.example", AppID: "app1", Environment: "staging"}})

	req := httptest.NewRequest("GET", "/ping", nil)
	req.Host = "prod.example"
	req.Header.Set("x-debug-host", "staging.example")

	result := d.Detect(req)
	assert.True(t, result.Found)
	assert.Equal(t, "staging", result.Environment)
}

func TestHostDetectorIgnoresDebugHeaderWhenDisabled(t *testing.T) {
	d := NewHostDetector()
	d.Rebuild([]HostBinding{{Host: "staging.example", AppID: "app1"}})

	req := httptest.NewRequest("GET", "/ping", nil)
	req.Host = "prod.example"
	req.Header.Set("x-debug-host", "staging.example")

	result := d.Detect(req)
	assert.False(t, result.Found)
}
