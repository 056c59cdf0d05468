package store_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/catalog/internal/apitest"
	"github.com/mesh-intelligence/catalog/internal/logging"
	"github.com/mesh-intelligence/catalog/internal/service"
	"github.com/mesh-intelligence/catalog/internal/store"
	"github.com/mesh-intelligence/catalog/internal/transport"
)

type noticeLog struct {
	mu      sync.Mutex
	notices []store.Notice
}

func (l *noticeLog) Notify(n store.Notice) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notices = append(l.notices, n)
}

func (l *noticeLog) all() []store.Notice {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]store.Notice(nil), l.notices...)
}

func (l *noticeLog) last() store.Notice {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.notices) == 0 {
		return store.Notice{}
	}
	return l.notices[len(l.notices)-1]
}

func (l *noticeLog) errors() []string {
	var out []string
	for _, n := range l.all() {
		if n.Level == store.LevelError {
			out = append(out, n.Message)
		}
	}
	return out
}

type fixture struct {
	srv         *apitest.Server
	notices     *noticeLog
	departments *store.DepartmentStore
	categories  *store.CategoryStore
	products    *store.ProductStore
	auth        *store.AuthStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := apitest.New(t)
	return newFixtureAt(t, srv, srv.BaseURL())
}

func newFixtureAt(t *testing.T, srv *apitest.Server, baseURL string) *fixture {
	t.Helper()
	log := logging.Discard()
	client, err := transport.New(transport.Config{
		BaseURL: baseURL,
		Log:     logging.Component(log, "transport"),
	})
	require.NoError(t, err)

	notices := &noticeLog{}
	opts := store.Options{Notifier: notices, Log: logging.Component(log, "store")}

	f := &fixture{srv: srv, notices: notices}
	f.auth = store.NewAuthStore(service.NewAuth(client, client), opts)
	f.departments = store.NewDepartmentStore(service.NewDepartments(client), opts)
	f.categories = store.NewCategoryStore(service.NewCategories(client), f.departments, opts)
	f.products = store.NewProductStore(service.NewProducts(client), store.ProductLookups{
		Departments: f.departments,
		Categories:  f.categories,
		Users:       f.auth,
	}, opts)
	return f
}
