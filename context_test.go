package cilantro

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/cilantro-web/cilantro/pkg/router"
)

func newContext(method, target string, body io.Reader, header map[string]string) (*Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, body)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	c := &Context{}
	c.reset(rec, req, New())
	return c, rec
}

func TestContext_RequestBasics(t *testing.T) {
	c, _ := newContext(http.MethodPut, "http://api.example.com/things/9?full=1", nil, nil)

	if got := c.Method(); got != http.MethodPut {
		t.Errorf("Method() = %q, want %q", got, http.MethodPut)
	}
	if got := c.Path(); got != "/things/9" {
		t.Errorf("Path() = %q, want %q", got, "/things/9")
	}
	if got := c.Host(); got != "api.example.com" {
		t.Errorf("Host() = %q, want %q", got, "api.example.com")
	}
	if got := c.Scheme(); got != "http" {
		t.Errorf("Scheme() = %q, want %q", got, "http")
	}
	if got := c.Proto(); got != "HTTP/1.1" {
		t.Errorf("Proto() = %q, want %q", got, "HTTP/1.1")
	}
}

func TestContext_URL(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   string
	}{
		{"plain", "http://example.com/a/b?x=1", "http://example.com/a/b?x=1"},
		{"default port elided", "http://example.com:80/a", "http://example.com/a"},
		{"explicit port kept", "http://example.com:8080/a", "http://example.com:8080/a"},
		{"https default port elided", "https://example.com:443/a", "https://example.com/a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newContext(http.MethodGet, tt.target, nil, nil)
			if got := c.URL(); got != tt.want {
				t.Errorf("URL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestContext_SchemeWithTLS(t *testing.T) {
	c, _ := newContext(http.MethodGet, "https://secure.example.com/x", nil, nil)
	if got := c.Scheme(); got != "https" {
		t.Errorf("Scheme() = %q, want %q", got, "https")
	}
}

func TestContext_Query(t *testing.T) {
	c, _ := newContext(http.MethodGet, "/search?q=go&tag=web&tag=fast&flag", nil, nil)

	if got := c.QueryParam("q"); got != "go" {
		t.Errorf(`QueryParam("q") = %q, want %q`, got, "go")
	}
	if got := c.Query()["tag"]; len(got) != 2 || got[1] != "fast" {
		t.Errorf(`Query()["tag"] = %v, want [web fast]`, got)
	}
	if got := c.QueryParam("flag"); got != "" {
		t.Errorf(`QueryParam("flag") = %q, want ""`, got)
	}
	if got := c.QueryParam("absent"); got != "" {
		t.Errorf(`QueryParam("absent") = %q, want ""`, got)
	}
}

func TestContext_Headers(t *testing.T) {
	c, _ := newContext(http.MethodGet, "/", nil, map[string]string{
		"X-Custom-Token": "abc123",
		"Content-Type":   "application/json",
	})

	if got := c.Header("x-custom-token"); got != "abc123" {
		t.Errorf(`Header("x-custom-token") = %q, want %q`, got, "abc123")
	}
	if got := c.Header("X-CUSTOM-TOKEN"); got != "abc123" {
		t.Errorf(`Header("X-CUSTOM-TOKEN") = %q, want %q`, got, "abc123")
	}
	if got := c.Header("absent"); got != "" {
		t.Errorf(`Header("absent") = %q, want ""`, got)
	}
	if got := c.ContentType(); got != "application/json" {
		t.Errorf("ContentType() = %q, want %q", got, "application/json")
	}
}

func TestContext_ContentTypeStripsParams(t *testing.T) {
	c, _ := newContext(http.MethodPost, "/", nil, map[string]string{
		"Content-Type": "Application/JSON; charset=utf-8",
	})
	if got := c.ContentType(); got != "application/json" {
		t.Errorf("ContentType() = %q, want %q", got, "application/json")
	}
}

func TestContext_BodyCaching(t *testing.T) {
	c, _ := newContext(http.MethodPost, "/", strings.NewReader("payload"), nil)

	first, err := c.Body()
	if err != nil {
		t.Fatalf("Body() error = %v", err)
	}
	second, err := c.Body()
	if err != nil {
		t.Fatalf("second Body() error = %v", err)
	}
	if string(first) != "payload" || string(second) != "payload" {
		t.Errorf("Body() = %q then %q, want payload both times", first, second)
	}
}

func TestContext_BodyEmpty(t *testing.T) {
	c, _ := newContext(http.MethodGet, "/", nil, nil)
	body, err := c.Body()
	if err != nil {
		t.Fatalf("Body() error = %v", err)
	}
	if len(body) != 0 {
		t.Errorf("Body() = %q, want empty", body)
	}
}

func TestContext_BodyTooLarge(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 64)))
	req.Body = http.MaxBytesReader(nil, req.Body, 8)
	c := &Context{}
	c.reset(httptest.NewRecorder(), req, New())

	_, err := c.Body()
	if !errors.Is(err, ErrBodyTooLarge) {
		t.Fatalf("Body() error = %v, want ErrBodyTooLarge", err)
	}
	if got := StatusOf(err); got != http.StatusRequestEntityTooLarge {
		t.Errorf("StatusOf(err) = %d, want %d", got, http.StatusRequestEntityTooLarge)
	}
}

func TestContext_Form(t *testing.T) {
	body := "name=ada&tag=a&tag=b&bare"
	c, _ := newContext(http.MethodPost, "/", strings.NewReader(body), map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
	})

	form, err := c.Form()
	if err != nil {
		t.Fatalf("Form() error = %v", err)
	}
	if got := form.Get("name"); got != "ada" {
		t.Errorf(`form.Get("name") = %q, want %q`, got, "ada")
	}
	if got := form["tag"]; len(got) != 2 || got[0] != "a" {
		t.Errorf(`form["tag"] = %v, want [a b]`, got)
	}
	if got, ok := form["bare"]; !ok || len(got) != 1 || got[0] != "" {
		t.Errorf(`form["bare"] = %v, want [""]`, got)
	}
	if got := c.FormValue("name"); got != "ada" {
		t.Errorf(`FormValue("name") = %q, want %q`, got, "ada")
	}
}

func TestContext_FormThenBody(t *testing.T) {
	c, _ := newContext(http.MethodPost, "/", strings.NewReader("k=v"), nil)

	if _, err := c.Form(); err != nil {
		t.Fatalf("Form() error = %v", err)
	}
	body, err := c.Body()
	if err != nil {
		t.Fatalf("Body() error = %v", err)
	}
	if string(body) != "k=v" {
		t.Errorf("Body() after Form() = %q, want %q", body, "k=v")
	}
}

func TestContext_MultipartForm(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("title", "report"); err != nil {
		t.Fatal(err)
	}
	fw, err := mw.CreateFormFile("upload", "notes.txt")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte("file contents")); err != nil {
		t.Fatal(err)
	}
	mw.Close()

	c, _ := newContext(http.MethodPost, "/", &buf, map[string]string{
		"Content-Type": mw.FormDataContentType(),
	})

	form, err := c.MultipartForm()
	if err != nil {
		t.Fatalf("MultipartForm() error = %v", err)
	}
	if got := form.Value["title"]; len(got) != 1 || got[0] != "report" {
		t.Errorf(`form.Value["title"] = %v, want [report]`, got)
	}

	fh, err := c.FormFile("upload")
	if err != nil {
		t.Fatalf("FormFile() error = %v", err)
	}
	if fh.Filename != "notes.txt" {
		t.Errorf("Filename = %q, want %q", fh.Filename, "notes.txt")
	}
	f, err := fh.Open()
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "file contents" {
		t.Errorf("file data = %q, want %q", data, "file contents")
	}

	if _, err := c.FormFile("absent"); err == nil {
		t.Error(`FormFile("absent") error = nil, want missing field error`)
	}
}

func TestContext_MultipartFormWrongContentType(t *testing.T) {
	c, _ := newContext(http.MethodPost, "/", strings.NewReader("plain"), map[string]string{
		"Content-Type": "text/plain",
	})
	if _, err := c.MultipartForm(); !errors.Is(err, ErrUnsupportedMedia) {
		t.Errorf("MultipartForm() error = %v, want ErrUnsupportedMedia", err)
	}
}

func TestContext_BindJSON(t *testing.T) {
	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	t.Run("valid", func(t *testing.T) {
		c, _ := newContext(http.MethodPost, "/", strings.NewReader(`{"name":"ada","count":3}`), nil)
		var p payload
		if err := c.BindJSON(&p); err != nil {
			t.Fatalf("BindJSON() error = %v", err)
		}
		if p.Name != "ada" || p.Count != 3 {
			t.Errorf("payload = %+v, want {ada 3}", p)
		}
	})

	t.Run("malformed", func(t *testing.T) {
		c, _ := newContext(http.MethodPost, "/", strings.NewReader(`{"name":`), nil)
		var p payload
		err := c.BindJSON(&p)
		if err == nil {
			t.Fatal("BindJSON() error = nil, want parse error")
		}
		if got := StatusOf(err); got != http.StatusBadRequest {
			t.Errorf("StatusOf(err) = %d, want %d", got, http.StatusBadRequest)
		}
	})

	t.Run("empty body", func(t *testing.T) {
		c, _ := newContext(http.MethodPost, "/", nil, nil)
		var p payload
		err := c.BindJSON(&p)
		if err == nil {
			t.Fatal("BindJSON() error = nil, want empty body error")
		}
		if got := StatusOf(err); got != http.StatusBadRequest {
			t.Errorf("StatusOf(err) = %d, want %d", got, http.StatusBadRequest)
		}
	})
}

func TestContext_Bind(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name        string
		contentType string
		body        string
		wantName    string
		wantStatus  int
	}{
		{"json", "application/json", `{"name":"ada"}`, "ada", 0},
		{"json suffix", "application/vnd.api+json", `{"name":"lin"}`, "lin", 0},
		{"form", "application/x-www-form-urlencoded", "name=grace", "grace", 0},
		{"unsupported", "text/csv", "name,ada", "", http.StatusUnsupportedMediaType},
		{"missing", "", `{"name":"x"}`, "", http.StatusUnsupportedMediaType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := map[string]string{}
			if tt.contentType != "" {
				header["Content-Type"] = tt.contentType
			}
			c, _ := newContext(http.MethodPost, "/", strings.NewReader(tt.body), header)

			var p payload
			err := c.Bind(&p)
			if tt.wantStatus != 0 {
				if err == nil {
					t.Fatal("Bind() error = nil, want error")
				}
				if got := StatusOf(err); got != tt.wantStatus {
					t.Errorf("StatusOf(err) = %d, want %d", got, tt.wantStatus)
				}
				return
			}
			if err != nil {
				t.Fatalf("Bind() error = %v", err)
			}
			if p.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", p.Name, tt.wantName)
			}
		})
	}
}

func TestContext_Params(t *testing.T) {
	c, _ := newContext(http.MethodGet, "/", nil, nil)
	c.params = router.Params{{Name: "id", Value: "42"}, {Name: "rest", Value: "a/b"}}
	c.pattern = "/users/{id}/{rest...}"
	c.name = "user-files"

	if got := c.Param("id"); got != "42" {
		t.Errorf(`Param("id") = %q, want %q`, got, "42")
	}
	if got := c.Param("absent"); got != "" {
		t.Errorf(`Param("absent") = %q, want ""`, got)
	}
	params := c.Params()
	if len(params) != 2 || params["rest"] != "a/b" {
		t.Errorf("Params() = %v, want map with rest=a/b", params)
	}
	if got := c.RoutePattern(); got != "/users/{id}/{rest...}" {
		t.Errorf("RoutePattern() = %q", got)
	}
	if got := c.RouteName(); got != "user-files" {
		t.Errorf("RouteName() = %q, want %q", got, "user-files")
	}
}

func TestContext_Store(t *testing.T) {
	c, _ := newContext(http.MethodGet, "/", nil, nil)

	if _, ok := c.Get("user"); ok {
		t.Error("Get() on empty store reported ok")
	}
	c.Set("user", "ada")
	v, ok := c.Get("user")
	if !ok || v != "ada" {
		t.Errorf(`Get("user") = %v, %v, want ada, true`, v, ok)
	}
}

func TestContext_ResetClearsState(t *testing.T) {
	c, _ := newContext(http.MethodPost, "/", strings.NewReader("k=v"), nil)
	c.Set("key", 1)
	if _, err := c.Form(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/other", nil)
	c.reset(httptest.NewRecorder(), req, New())

	if _, ok := c.Get("key"); ok {
		t.Error("store survived reset")
	}
	form, err := c.Form()
	if err != nil {
		t.Fatalf("Form() after reset error = %v", err)
	}
	if len(form) != 0 {
		t.Errorf("Form() after reset = %v, want empty", form)
	}
}

func TestContext_QueryIsParsedOnce(t *testing.T) {
	c, _ := newContext(http.MethodGet, "/?a=1", nil, nil)
	q1 := c.Query()
	q1.Set("injected", "yes")
	q2 := c.Query()
	if got := q2.Get("injected"); got != "yes" {
		t.Errorf("Query() returned a fresh parse, want cached values")
	}
	if got := url.Values(q2).Get("a"); got != "1" {
		t.Errorf(`Query().Get("a") = %q, want %q`, got, "1")
	}
}
