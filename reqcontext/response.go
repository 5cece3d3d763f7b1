package reqcontext

import (
	"encoding/json"

	"github.com/gocrud/tenantengine/apperrors"
)

// WriteJSON writes status and v as a JSON body, running it through the
// app's RequestProcessor.ProcessResponse hook first when one is set.
func (c *Context) WriteJSON(status int, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return apperrors.NewInternal(err)
	}
	return c.writeBody(status, "application/json", body)
}

// WriteError renders err as the framework's standard error envelope. JSON
// is used unless the request's Accept header prefers plain text.
func (c *Context) WriteError(err error) error {
	wrapped := apperrors.ConvertOrWrap(err)

	accept := c.Request.Header.Get("Accept")
	if accept == "text/plain" {
		return c.writeBody(wrapped.HTTPStatus(), "text/plain; charset=utf-8", wrapped.PlainTextBody())
	}
	return c.writeBody(wrapped.HTTPStatus(), "application/json", wrapped.JSONBody())
}

func (c *Context) writeBody(status int, contentType string, body []byte) error {
	if c.Processor != nil {
		processed, err := c.Processor.ProcessResponse(c, body)
		if err != nil {
			return err
		}
		body = processed
	}

	if c.written {
		return nil
	}

	c.Response.Header().Set("Content-Type", contentType)
	c.status = status
	c.written = true
	c.Response.WriteHeader(status)
	_, err := c.Response.Write(body)
	return err
}
