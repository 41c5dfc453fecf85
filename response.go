package cilantro

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/sugawarayuuta/sonnet"
)

// responseWriter wraps an http.ResponseWriter and records the status code
// and byte count of whatever the handler chain writes. The first
// WriteHeader wins; later calls are ignored.
type responseWriter struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (w *responseWriter) WriteHeader(status int) {
	if w.status != 0 {
		return
	}
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *responseWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(p)
	w.bytes += int64(n)
	return n, err
}

func (w *responseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap supports http.ResponseController.
func (w *responseWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// Status returns the response status code, or 0 when nothing has been
// written yet.
func (c *Context) Status() int { return c.writer.status }

// Written reports whether the response header has been sent.
func (c *Context) Written() bool { return c.writer.status != 0 }

// BytesWritten returns the number of body bytes written so far.
func (c *Context) BytesWritten() int64 { return c.writer.bytes }

// SetHeader sets a response header. It has no effect once the response
// header has been sent.
func (c *Context) SetHeader(key, value string) {
	c.writer.Header().Set(key, value)
}

// Text writes a plain text response.
func (c *Context) Text(status int, body string) error {
	return c.Blob(status, "text/plain; charset=utf-8", []byte(body))
}

// HTML writes an HTML response.
func (c *Context) HTML(status int, body string) error {
	return c.Blob(status, "text/html; charset=utf-8", []byte(body))
}

// JSON encodes v and writes it as an application/json response.
func (c *Context) JSON(status int, v any) error {
	b, err := sonnet.Marshal(v)
	if err != nil {
		return &Error{Status: http.StatusInternalServerError, Message: "encode json response", Err: err}
	}
	return c.Blob(status, "application/json", b)
}

// Blob writes body with the given content type. Content-Length is set
// except for informational and no-content statuses.
func (c *Context) Blob(status int, contentType string, body []byte) error {
	h := c.writer.Header()
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	if status >= http.StatusOK && status != http.StatusNoContent {
		h.Set("Content-Length", strconv.Itoa(len(body)))
	}
	c.writer.WriteHeader(status)
	if len(body) == 0 || status < http.StatusOK || status == http.StatusNoContent {
		return nil
	}
	_, err := c.writer.Write(body)
	return err
}

// NoContent writes a 204 response with no body.
func (c *Context) NoContent() error {
	c.writer.WriteHeader(http.StatusNoContent)
	return nil
}

// Redirect writes a redirect response. The status must be a 3xx code and
// the target, after percent-encoding, goes out in the Location header.
func (c *Context) Redirect(status int, target string) error {
	if status < 300 || status > 399 {
		return Errorf(http.StatusInternalServerError, "redirect status %d is not a 3xx code", status)
	}
	if target == "" {
		return NewError(http.StatusInternalServerError, "redirect target is empty")
	}
	c.writer.Header().Set("Location", escapeLocation(target))
	c.writer.WriteHeader(status)
	return nil
}

// Render executes a named template against data and writes the result as
// an HTML response.
func (c *Context) Render(status int, name string, data any) error {
	if c.app == nil || c.app.templates == nil {
		return NewError(http.StatusInternalServerError, "no templates configured")
	}
	var buf bytes.Buffer
	if err := c.app.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return &Error{Status: http.StatusInternalServerError, Message: "render template " + name, Err: err}
	}
	return c.Blob(status, "text/html; charset=utf-8", buf.Bytes())
}

// File serves the named file, honoring Range and conditional requests.
func (c *Context) File(path string) error {
	http.ServeFile(c.writer, c.request, path)
	return nil
}

// locationSafe lists the reserved characters left intact when encoding a
// Location header. Everything else outside the unreserved set is
// percent-encoded, so query separators like "&" in the target are escaped.
const locationSafe = ":/%#?="

const upperhex = "0123456789ABCDEF"

// escapeLocation percent-encodes a redirect target for the Location
// header.
func escapeLocation(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if isUnreserved(ch) || strings.IndexByte(locationSafe, ch) >= 0 {
			b.WriteByte(ch)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[ch>>4])
		b.WriteByte(upperhex[ch&0xf])
	}
	return b.String()
}

func isUnreserved(ch byte) bool {
	switch {
	case 'a' <= ch && ch <= 'z', 'A' <= ch && ch <= 'Z', '0' <= ch && ch <= '9':
		return true
	case ch == '-' || ch == '.' || ch == '_' || ch == '~':
		return true
	}
	return false
}
