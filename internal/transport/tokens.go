package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"golang.org/x/net/publicsuffix"

	"github.com/mesh-intelligence/catalog/pkg/types"
)

// TokenSource is the get-or-refresh capability behind the CSRF interceptor.
// Token reports the current token, if any. Refresh asks the service for a new
// one; the token is available through Token afterwards when the service
// issued it.
type TokenSource interface {
	Token(ctx context.Context) (string, bool)
	Refresh(ctx context.Context) error
}

// CookieTokenSource reads the token from a cookie jar and refreshes it by
// calling the token-issuing endpoint, which sets the cookie as a side effect.
// It keeps no state of its own; the jar is the only store.
type CookieTokenSource struct {
	Jar       http.CookieJar
	CookieURL *url.URL // whose cookies carry the token
	TokenURL  *url.URL
	Client    *http.Client // must share Jar and must not be wrapped by CSRF
}

// Token returns the decoded value of the XSRF-TOKEN cookie.
func (s *CookieTokenSource) Token(ctx context.Context) (string, bool) {
	for _, c := range s.Jar.Cookies(s.CookieURL) {
		if c.Name != types.CSRFCookieName {
			continue
		}
		v, err := url.PathUnescape(c.Value)
		if err != nil {
			v = c.Value
		}
		if v != "" {
			return v, true
		}
	}
	return "", false
}

// Refresh calls the token-issuing endpoint.
func (s *CookieTokenSource) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.TokenURL.String(), nil)
	if err != nil {
		return fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode >= 400 {
		return fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// NewJar returns an in-memory cookie jar using the public suffix list.
func NewJar() (http.CookieJar, error) {
	return cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
}
