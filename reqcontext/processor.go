package reqcontext

import (
	"net/http"

	"github.com/gabriel-vasile/mimetype"

	"github.com/gocrud/tenantengine/appconfig"
)

// RequestProcessor is the optional, one-per-app body pre/post-processing
// hook described in §4.3: prepare(app) configures it once per app build,
// processRequest/processResponse transform bodies on the request's way in
// and out.
type RequestProcessor interface {
	Prepare(app *appconfig.AppConfig) error
	ProcessRequest(r *http.Request, body []byte) ([]byte, error)
	ProcessResponse(c *Context, response []byte) ([]byte, error)
}

// SniffingRequestProcessor is a baseline RequestProcessor that falls back
// to content-sniffing (via mimetype) when a request arrives without a
// usable Content-Type, rather than rejecting it outright. Apps needing
// richer processing (compression, signature verification, ...) implement
// RequestProcessor directly and are handed to the engine per-app.
type SniffingRequestProcessor struct{}

func (SniffingRequestProcessor) Prepare(app *appconfig.AppConfig) error { return nil }

func (SniffingRequestProcessor) ProcessRequest(r *http.Request, body []byte) ([]byte, error) {
	if r.Header.Get("Content-Type") == "" && len(body) > 0 {
		detected := mimetype.Detect(body)
		r.Header.Set("Content-Type", detected.String())
	}
	return body, nil
}

func (SniffingRequestProcessor) ProcessResponse(c *Context, response []byte) ([]byte, error) {
	return response, nil
}
