package sqlite

import (
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}

func cookieValue(cookies []*http.Cookie, name string) (string, bool) {
	for _, c := range cookies {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

func TestOpenCookieJar_CreatesDatabase(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")

	j, err := OpenCookieJar(dir, nil)
	if err != nil {
		t.Fatalf("OpenCookieJar failed: %v", err)
	}
	defer j.Close()

	if _, err := os.Stat(filepath.Join(dir, DatabaseFile)); err != nil {
		t.Errorf("database not created: %v", err)
	}
	if j.Path() != filepath.Join(dir, DatabaseFile) {
		t.Errorf("Path() = %q", j.Path())
	}
}

func TestCookieJar_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	api := mustURL(t, "http://localhost:8000/api/departments")
	root := mustURL(t, "http://localhost:8000/sanctum/csrf-cookie")

	j, err := OpenCookieJar(dir, nil)
	if err != nil {
		t.Fatalf("OpenCookieJar failed: %v", err)
	}
	j.SetCookies(root, []*http.Cookie{
		{Name: "XSRF-TOKEN", Value: "abc%3D", Path: "/", MaxAge: 7200},
		{Name: "catalog_session", Value: "s1", Path: "/", HttpOnly: true},
	})
	if err := j.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	j, err = OpenCookieJar(dir, nil)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer j.Close()

	got := j.Cookies(api)
	if v, ok := cookieValue(got, "XSRF-TOKEN"); !ok || v != "abc%3D" {
		t.Errorf("XSRF-TOKEN = %q, %v; want abc%%3D", v, ok)
	}
	if v, ok := cookieValue(got, "catalog_session"); !ok || v != "s1" {
		t.Errorf("catalog_session = %q, %v; want s1", v, ok)
	}
}

func TestCookieJar_OverwriteAndDelete(t *testing.T) {
	dir := t.TempDir()
	root := mustURL(t, "http://localhost:8000/")

	j, err := OpenCookieJar(dir, nil)
	if err != nil {
		t.Fatalf("OpenCookieJar failed: %v", err)
	}
	defer j.Close()

	j.SetCookies(root, []*http.Cookie{{Name: "XSRF-TOKEN", Value: "one", Path: "/"}})
	j.SetCookies(root, []*http.Cookie{{Name: "XSRF-TOKEN", Value: "two", Path: "/"}})

	n, err := j.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 stored cookie after overwrite, got %d", n)
	}
	if v, _ := cookieValue(j.Cookies(root), "XSRF-TOKEN"); v != "two" {
		t.Errorf("expected overwritten value two, got %q", v)
	}

	j.SetCookies(root, []*http.Cookie{{Name: "XSRF-TOKEN", Path: "/", MaxAge: -1}})
	if n, _ := j.Count(); n != 0 {
		t.Errorf("expected cookie removed, %d remain", n)
	}
	if _, ok := cookieValue(j.Cookies(root), "XSRF-TOKEN"); ok {
		t.Error("expected cookie gone from memory too")
	}
}

func TestCookieJar_DropsExpiredOnLoad(t *testing.T) {
	dir := t.TempDir()
	root := mustURL(t, "http://localhost:8000/")

	j, err := OpenCookieJar(dir, nil)
	if err != nil {
		t.Fatalf("OpenCookieJar failed: %v", err)
	}
	j.SetCookies(root, []*http.Cookie{{Name: "short", Value: "v", Path: "/", Expires: time.Now().Add(time.Second)}})
	// Age the row directly rather than sleeping.
	if _, err := j.db.Exec(`UPDATE cookies SET expires = ?`, time.Now().Add(-time.Hour).Unix()); err != nil {
		t.Fatalf("age cookie: %v", err)
	}
	j.Close()

	j, err = OpenCookieJar(dir, nil)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer j.Close()

	if n, _ := j.Count(); n != 0 {
		t.Errorf("expected expired cookie purged, %d remain", n)
	}
	if len(j.Cookies(root)) != 0 {
		t.Error("expected no cookies in memory")
	}
}

func TestCookieJar_DefaultPath(t *testing.T) {
	dir := t.TempDir()
	u := mustURL(t, "http://localhost:8000/api/login")

	j, err := OpenCookieJar(dir, nil)
	if err != nil {
		t.Fatalf("OpenCookieJar failed: %v", err)
	}
	j.SetCookies(u, []*http.Cookie{{Name: "scoped", Value: "v"}})
	j.Close()

	j, err = OpenCookieJar(dir, nil)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer j.Close()

	if _, ok := cookieValue(j.Cookies(mustURL(t, "http://localhost:8000/api/user")), "scoped"); !ok {
		t.Error("expected cookie under /api after reload")
	}
	if _, ok := cookieValue(j.Cookies(mustURL(t, "http://localhost:8000/other")), "scoped"); ok {
		t.Error("cookie must not leak outside its default path")
	}
}

func TestCookieJar_ClearAndClose(t *testing.T) {
	dir := t.TempDir()
	root := mustURL(t, "http://localhost:8000/")

	j, err := OpenCookieJar(dir, nil)
	if err != nil {
		t.Fatalf("OpenCookieJar failed: %v", err)
	}
	j.SetCookies(root, []*http.Cookie{{Name: "a", Value: "1", Path: "/"}})

	if err := j.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if len(j.Cookies(root)) != 0 {
		t.Error("expected empty jar after Clear")
	}

	if err := j.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Errorf("second Close should not error, got %v", err)
	}
	if err := j.Clear(); err != ErrClosed {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	// Setting cookies after close still updates memory without panicking.
	j.SetCookies(root, []*http.Cookie{{Name: "b", Value: "2", Path: "/"}})
}

func TestDefaultPath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "/"},
		{"/", "/"},
		{"/login", "/"},
		{"/api/login", "/api"},
		{"/api/v1/", "/api/v1"},
		{"relative", "/"},
	}
	for _, tt := range tests {
		if got := defaultPath(tt.in); got != tt.want {
			t.Errorf("defaultPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
