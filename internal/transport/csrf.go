package transport

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/catalog/internal/metrics"
	"github.com/mesh-intelligence/catalog/pkg/types"
)

// CSRF is an http.RoundTripper that keeps mutating requests supplied with an
// anti-forgery token.
//
// GET requests and requests to the token-issuing endpoint pass through. Any
// other request gets the current token in the X-XSRF-TOKEN header, priming
// the token first when none is available. A 419 response triggers a single
// recovery: refresh the token and, if one is then available, replay the
// request once against Next. The replay never re-enters CSRF, so a session
// that keeps expiring fails after one extra attempt.
//
// CSRF holds no mutable state and is safe for concurrent use.
type CSRF struct {
	Next   http.RoundTripper
	Tokens TokenSource

	// Jar, when set, is used to rebuild the Cookie header of a request after
	// a refresh so the new session cookie goes out with the new token.
	Jar http.CookieJar

	// TokenURL identifies the token-issuing endpoint. When nil, any path
	// ending in types.CSRFPath is treated as the endpoint.
	TokenURL *url.URL

	Log     *logrus.Entry
	Metrics *metrics.Metrics
}

// RoundTrip implements http.RoundTripper.
func (t *CSRF) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method == http.MethodGet || t.isTokenEndpoint(req) {
		return t.next().RoundTrip(req)
	}

	getBody, err := replayableBody(req)
	if err != nil {
		return nil, err
	}
	out, err := cloneWithBody(req, getBody)
	if err != nil {
		return nil, err
	}

	ctx := req.Context()
	token, ok := t.Tokens.Token(ctx)
	if !ok {
		t.Metrics.IncPrime(metrics.PrimeMissing)
		t.log().WithField("url", req.URL.Path).Debug("csrf token missing, priming")
		if err := t.Tokens.Refresh(ctx); err != nil {
			return nil, err
		}
		token, ok = t.Tokens.Token(ctx)
		t.syncCookies(out)
	}
	if ok {
		out.Header.Set(types.CSRFHeaderName, token)
	}

	resp, err := t.next().RoundTrip(out)
	if err != nil || resp.StatusCode != types.StatusTokenExpired {
		return resp, err
	}
	return t.recoverExpired(req, getBody, resp)
}

// recoverExpired runs the one recovery cycle allowed after a 419.
func (t *CSRF) recoverExpired(req *http.Request, getBody func() (io.ReadCloser, error), expired *http.Response) (*http.Response, error) {
	ctx := req.Context()
	log := t.log().WithFields(logrus.Fields{"method": req.Method, "url": req.URL.Path})

	t.Metrics.IncPrime(metrics.PrimeExpired)
	if err := t.Tokens.Refresh(ctx); err != nil {
		drainAndClose(expired.Body)
		t.Metrics.IncReplay(metrics.ReplayFailed)
		log.WithError(err).Debug("csrf token refresh failed")
		return nil, err
	}

	token, ok := t.Tokens.Token(ctx)
	if !ok {
		t.Metrics.IncReplay(metrics.ReplaySkipped)
		log.Debug("no csrf token after refresh, giving up")
		return expired, nil
	}

	retry, err := cloneWithBody(req, getBody)
	if err != nil {
		return expired, nil
	}
	drainAndClose(expired.Body)
	retry.Header.Set(types.CSRFHeaderName, token)
	t.syncCookies(retry)

	resp, err := t.next().RoundTrip(retry)
	if err != nil || resp.StatusCode >= 400 {
		t.Metrics.IncReplay(metrics.ReplayFailed)
		log.Debug("replay after csrf refresh failed")
	} else {
		t.Metrics.IncReplay(metrics.ReplaySucceeded)
		log.Debug("replayed request with refreshed csrf token")
	}
	return resp, err
}

func (t *CSRF) isTokenEndpoint(req *http.Request) bool {
	if t.TokenURL != nil {
		return req.URL.Host == t.TokenURL.Host && req.URL.Path == t.TokenURL.Path
	}
	return strings.HasSuffix(req.URL.Path, types.CSRFPath)
}

func (t *CSRF) syncCookies(req *http.Request) {
	if t.Jar == nil {
		return
	}
	req.Header.Del("Cookie")
	for _, c := range t.Jar.Cookies(req.URL) {
		req.AddCookie(c)
	}
}

func (t *CSRF) next() http.RoundTripper {
	if t.Next != nil {
		return t.Next
	}
	return http.DefaultTransport
}

func (t *CSRF) log() *logrus.Entry {
	if t.Log != nil {
		return t.Log
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// replayableBody returns a function yielding a fresh copy of the request
// body, buffering it when the request cannot produce one itself. It returns
// nil for requests without a body.
func replayableBody(req *http.Request) (func() (io.ReadCloser, error), error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	if req.GetBody != nil {
		req.Body.Close()
		return req.GetBody, nil
	}
	data, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, err
	}
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}, nil
}

func cloneWithBody(req *http.Request, getBody func() (io.ReadCloser, error)) (*http.Request, error) {
	out := req.Clone(req.Context())
	if getBody == nil {
		return out, nil
	}
	body, err := getBody()
	if err != nil {
		return nil, err
	}
	out.Body = body
	out.GetBody = getBody
	return out, nil
}

func drainAndClose(body io.ReadCloser) {
	if body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	body.Close()
}
