package cilantro

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/sugawarayuuta/sonnet"

	"github.com/cilantro-web/cilantro/pkg/decode"
	"github.com/cilantro-web/cilantro/pkg/headers"
	"github.com/cilantro-web/cilantro/pkg/middleware"
	"github.com/cilantro-web/cilantro/pkg/router"
)

// maxMultipartMemory bounds the in-memory portion of a parsed multipart
// form; larger file parts spill to temporary files.
const maxMultipartMemory = 32 << 20

// Context carries a single request through the handler chain. It wraps the
// request and response writer, exposes the matched route's parameters, and
// caches derived views of the request (query, headers, body, forms) so
// repeated access does not re-parse.
//
// Contexts are pooled and reset between requests. Handlers must not retain
// a Context, or any map or slice obtained from it, past their return.
type Context struct {
	app     *App
	request *http.Request
	writer  *responseWriter

	pattern string
	name    string
	params  router.Params

	query     url.Values
	queryOnce bool

	headers     headers.Header
	headersOnce bool

	body     []byte
	bodyErr  error
	bodyOnce bool

	form     url.Values
	formErr  error
	formOnce bool

	multipart     *multipart.Form
	multipartErr  error
	multipartOnce bool

	store map[string]any
}

// reset prepares a pooled Context for a new request.
func (c *Context) reset(w http.ResponseWriter, r *http.Request, app *App) {
	c.app = app
	c.request = r
	c.writer = &responseWriter{ResponseWriter: w}

	c.pattern = ""
	c.name = ""
	c.params = nil

	c.query = nil
	c.queryOnce = false
	c.headers = headers.Header{}
	c.headersOnce = false
	c.body = nil
	c.bodyErr = nil
	c.bodyOnce = false
	c.form = nil
	c.formErr = nil
	c.formOnce = false
	c.multipart = nil
	c.multipartErr = nil
	c.multipartOnce = false
	c.store = nil
}

// release drops per-request state before the Context returns to the pool.
func (c *Context) release() {
	if c.multipart != nil {
		_ = c.multipart.RemoveAll()
	}
	c.app = nil
	c.request = nil
	c.writer = nil
	c.params = nil
	c.query = nil
	c.headers = headers.Header{}
	c.body = nil
	c.form = nil
	c.multipart = nil
	c.store = nil
}

// Request returns the underlying *http.Request.
func (c *Context) Request() *http.Request { return c.request }

// Writer returns the response writer. Writes through it are tracked by
// Status, Written, and BytesWritten.
func (c *Context) Writer() http.ResponseWriter { return c.writer }

// Context returns the request's context.
func (c *Context) Context() context.Context { return c.request.Context() }

// Logger returns the application logger.
func (c *Context) Logger() *slog.Logger { return c.app.logger }

// Method returns the request method.
func (c *Context) Method() string { return c.request.Method }

// Path returns the decoded request path.
func (c *Context) Path() string { return c.request.URL.Path }

// Proto returns the protocol version, such as "HTTP/1.1".
func (c *Context) Proto() string { return c.request.Proto }

// Scheme reports "https" when the request arrived over TLS and "http"
// otherwise.
func (c *Context) Scheme() string {
	if c.request.TLS != nil {
		return "https"
	}
	return "http"
}

// Host returns the host the request was addressed to, falling back to the
// local listener address when the Host header is absent.
func (c *Context) Host() string {
	if c.request.Host != "" {
		return c.request.Host
	}
	if addr, ok := c.request.Context().Value(http.LocalAddrContextKey).(net.Addr); ok {
		return addr.String()
	}
	return ""
}

// URL reconstructs the full request URL, eliding default ports.
func (c *Context) URL() string {
	scheme := c.Scheme()
	host := c.Host()
	if h, port, err := net.SplitHostPort(host); err == nil {
		if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
			host = h
		}
	}
	return scheme + "://" + host + c.request.URL.RequestURI()
}

// RoutePattern returns the pattern of the matched route, or "" when no
// route matched.
func (c *Context) RoutePattern() string { return c.pattern }

// RouteName returns the name of the matched route, or "" when the route is
// unnamed or no route matched.
func (c *Context) RouteName() string { return c.name }

// Param returns the named path parameter, or "" when absent.
func (c *Context) Param(name string) string {
	return c.params.Get(name)
}

// Params returns the matched path parameters as a map.
func (c *Context) Params() map[string]string {
	out := make(map[string]string, len(c.params))
	for _, p := range c.params {
		out[p.Name] = p.Value
	}
	return out
}

// Query returns the parsed query string. The result is cached for the
// lifetime of the request.
func (c *Context) Query() url.Values {
	if !c.queryOnce {
		c.query = c.request.URL.Query()
		c.queryOnce = true
	}
	return c.query
}

// QueryParam returns the first value for the named query parameter, or ""
// when absent. A bare key with no "=" yields "".
func (c *Context) QueryParam(name string) string {
	return c.Query().Get(name)
}

// Headers returns the request headers as a case-insensitive view. The raw
// pairs keep their wire casing.
func (c *Context) Headers() headers.Header {
	if !c.headersOnce {
		c.headers = headers.FromHTTP(c.request.Header)
		c.headersOnce = true
	}
	return c.headers
}

// Header returns the first value of the named request header, or "".
func (c *Context) Header(name string) string {
	return c.Headers().Get(name)
}

// ContentType returns the request's media type with parameters stripped,
// lowercased, or "" when the header is absent or malformed.
func (c *Context) ContentType() string {
	ct := c.request.Header.Get("Content-Type")
	if ct == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return ""
	}
	return mt
}

// RequestID returns the request's correlation ID, if one was assigned.
func (c *Context) RequestID() string {
	return middleware.RequestIDFromContext(c.request.Context())
}

// Body reads and returns the request body. The body is read at most once;
// subsequent calls return the cached bytes. A body exceeding the configured
// size limit yields ErrBodyTooLarge.
func (c *Context) Body() ([]byte, error) {
	if c.bodyOnce {
		return c.body, c.bodyErr
	}
	c.bodyOnce = true

	if c.request.Body == nil {
		c.body = []byte{}
		return c.body, nil
	}
	body, err := io.ReadAll(c.request.Body)
	c.request.Body.Close()
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.bodyErr = ErrBodyTooLarge
		} else {
			c.bodyErr = &Error{Status: http.StatusBadRequest, Message: "read request body", Err: err}
		}
		return nil, c.bodyErr
	}
	c.body = body
	return c.body, nil
}

// Form parses the request body as URL-encoded form data. The result is
// cached; like Body, the underlying bytes are read once. Bare keys parse
// with an empty value.
func (c *Context) Form() (url.Values, error) {
	if c.formOnce {
		return c.form, c.formErr
	}
	c.formOnce = true

	body, err := c.Body()
	if err != nil {
		c.formErr = err
		return nil, c.formErr
	}
	form, err := url.ParseQuery(string(body))
	if err != nil {
		c.formErr = &Error{Status: http.StatusBadRequest, Message: "parse form body", Err: err}
		return nil, c.formErr
	}
	c.form = form
	return c.form, nil
}

// FormValue returns the first value for the named form field, or "" when
// the field is absent or the body is not parseable as a form.
func (c *Context) FormValue(name string) string {
	form, err := c.Form()
	if err != nil {
		return ""
	}
	return form.Get(name)
}

// MultipartForm parses the request body as multipart form data. The parsed
// form is cached and its temporary files are cleaned up when the request
// completes.
func (c *Context) MultipartForm() (*multipart.Form, error) {
	if c.multipartOnce {
		return c.multipart, c.multipartErr
	}
	c.multipartOnce = true

	mt, mtParams, err := mime.ParseMediaType(c.request.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mt, "multipart/") {
		c.multipartErr = ErrUnsupportedMedia
		return nil, c.multipartErr
	}
	boundary := mtParams["boundary"]
	if boundary == "" {
		c.multipartErr = &Error{Status: http.StatusBadRequest, Message: "multipart body missing boundary"}
		return nil, c.multipartErr
	}

	body, err := c.Body()
	if err != nil {
		c.multipartErr = err
		return nil, c.multipartErr
	}
	form, err := multipart.NewReader(bytes.NewReader(body), boundary).ReadForm(maxMultipartMemory)
	if err != nil {
		c.multipartErr = &Error{Status: http.StatusBadRequest, Message: "parse multipart body", Err: err}
		return nil, c.multipartErr
	}
	c.multipart = form
	return c.multipart, nil
}

// FormFile returns the first uploaded file for the named multipart field.
func (c *Context) FormFile(name string) (*multipart.FileHeader, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, err
	}
	files := form.File[name]
	if len(files) == 0 {
		return nil, &Error{Status: http.StatusBadRequest, Message: "no file field " + name}
	}
	return files[0], nil
}

// BindJSON decodes the request body as JSON into v. Empty or malformed
// bodies yield a 400 error.
func (c *Context) BindJSON(v any) error {
	body, err := c.Body()
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return NewError(http.StatusBadRequest, "empty request body")
	}
	if err := sonnet.Unmarshal(body, v); err != nil {
		return &Error{Status: http.StatusBadRequest, Message: "invalid json body", Err: err}
	}
	return nil
}

// Bind decodes the request body into v based on the Content-Type header.
// JSON media types decode directly; URL-encoded forms decode through an
// intermediate map. Other media types yield ErrUnsupportedMedia.
func (c *Context) Bind(v any) error {
	switch mt := c.ContentType(); {
	case mt == "application/json" || strings.HasSuffix(mt, "+json"):
		return c.BindJSON(v)
	case mt == "application/x-www-form-urlencoded":
		form, err := c.Form()
		if err != nil {
			return err
		}
		if err := decode.Values(form, v); err != nil {
			return &Error{Status: http.StatusBadRequest, Message: "bind form body", Err: err}
		}
		return nil
	default:
		return ErrUnsupportedMedia
	}
}

// Set stores a value on the Context for later retrieval within the same
// request.
func (c *Context) Set(key string, value any) {
	if c.store == nil {
		c.store = make(map[string]any)
	}
	c.store[key] = value
}

// Get returns a value previously stored with Set.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.store[key]
	return v, ok
}
