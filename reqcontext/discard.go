package reqcontext

import "net/http"

// discardWriter implements http.ResponseWriter, keeping header/status calls
// intact but throwing away every byte written to the body — the HEAD->GET
// fallback's "downstream response body is discarded" rule (§4.2).
type discardWriter struct {
	http.ResponseWriter
}

func (discardWriter) Write(p []byte) (int, error) {
	return len(p), nil
}
