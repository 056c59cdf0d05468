// Package app is the composition root: it builds the logger, metrics,
// cookie jar, transport, services and stores from a Config and wires the
// cross-store lookups.
package app

import (
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/catalog/internal/logging"
	"github.com/mesh-intelligence/catalog/internal/metrics"
	"github.com/mesh-intelligence/catalog/internal/service"
	"github.com/mesh-intelligence/catalog/internal/sqlite"
	"github.com/mesh-intelligence/catalog/internal/store"
	"github.com/mesh-intelligence/catalog/internal/transport"
	"github.com/mesh-intelligence/catalog/pkg/types"
)

// App holds one fully wired client.
type App struct {
	Config  types.Config
	Log     *logrus.Logger
	Metrics *metrics.Metrics
	Client  *transport.Client
	Jar     http.CookieJar

	Departments *store.DepartmentStore
	Categories  *store.CategoryStore
	Products    *store.ProductStore
	Auth        *store.AuthStore

	cookies *sqlite.CookieJar
}

type options struct {
	log      *logrus.Logger
	notifier store.Notifier
	base     http.RoundTripper
	jar      http.CookieJar
	metrics  *metrics.Metrics
}

// Option customizes New.
type Option func(*options)

// WithLogger uses log instead of one built from Config.Log.
func WithLogger(log *logrus.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithNotifier receives store notices. The default logs them.
func WithNotifier(n store.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithRoundTripper sets the transport under the CSRF interceptor.
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(o *options) { o.base = rt }
}

// WithCookieJar uses jar instead of the one selected by Config.CookieStore.
func WithCookieJar(jar http.CookieJar) Option {
	return func(o *options) { o.jar = jar }
}

// WithMetrics records into m instead of a fresh registry.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// New validates cfg and builds an App. Close releases what it opened.
func New(cfg types.Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg, Log: o.log, Metrics: o.metrics, Jar: o.jar}
	if a.Log == nil {
		log, err := logging.New(cfg.Log, cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("create logger: %w", err)
		}
		a.Log = log
	}
	if a.Metrics == nil {
		a.Metrics = metrics.New()
	}

	if a.Jar == nil {
		if err := a.openJar(); err != nil {
			return nil, err
		}
	}

	tokenURL, err := cfg.TokenURL()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("token URL: %w", err)
	}
	a.Client, err = transport.New(transport.Config{
		BaseURL:           cfg.BaseURL,
		TokenURL:          tokenURL,
		Timeout:           cfg.Timeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
		Jar:               a.Jar,
		Base:              o.base,
		Log:               logging.Component(a.Log, "transport"),
		Metrics:           a.Metrics,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create transport: %w", err)
	}

	notifier := o.notifier
	if notifier == nil {
		notifier = store.LogNotifier(logging.Component(a.Log, "notice"))
	}
	storeOpts := store.Options{Notifier: notifier, Log: logging.Component(a.Log, "store")}

	a.Auth = store.NewAuthStore(service.NewAuth(a.Client, a.Client), storeOpts)
	a.Departments = store.NewDepartmentStore(service.NewDepartments(a.Client), storeOpts)
	a.Categories = store.NewCategoryStore(service.NewCategories(a.Client), a.Departments, storeOpts)
	a.Products = store.NewProductStore(service.NewProducts(a.Client), store.ProductLookups{
		Departments: a.Departments,
		Categories:  a.Categories,
		Users:       a.Auth,
	}, storeOpts)

	a.Log.WithFields(logrus.Fields{
		"base_url":     cfg.BaseURL,
		"cookie_store": cfg.CookieStore,
	}).Debug("client ready")
	return a, nil
}

func (a *App) openJar() error {
	switch a.Config.CookieStore {
	case types.CookieStoreSQLite:
		jar, err := sqlite.OpenCookieJar(a.Config.DataDir, logging.Component(a.Log, "cookies"))
		if err != nil {
			return fmt.Errorf("open cookie store: %w", err)
		}
		a.cookies, a.Jar = jar, jar
	default:
		jar, err := transport.NewJar()
		if err != nil {
			return fmt.Errorf("create cookie jar: %w", err)
		}
		a.Jar = jar
	}
	return nil
}

// ClearCookies forgets the stored session and token. It is a no-op unless
// the SQLite cookie store is in use.
func (a *App) ClearCookies() error {
	if a.cookies == nil {
		return nil
	}
	return a.cookies.Clear()
}

// Close releases the cookie database, if one was opened.
func (a *App) Close() error {
	if a.cookies == nil {
		return nil
	}
	return a.cookies.Close()
}
