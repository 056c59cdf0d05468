package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/catalog/pkg/types"
)

// memDepartments is an in-memory DepartmentService. reuseID, when set, is
// returned as the ID of the next created department.
type memDepartments struct {
	mu      sync.Mutex
	next    int
	list    []types.Department
	listErr error
	reuseID types.ID
}

func (m *memDepartments) List(context.Context) ([]types.Department, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.Department(nil), m.list...), m.listErr
}

func (m *memDepartments) Create(_ context.Context, d types.DepartmentDraft) (types.Department, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.reuseID
	if id.IsZero() {
		m.next++
		id = types.ID(strconv.Itoa(m.next))
	}
	m.reuseID = ""
	return types.Department{ID: id, Name: d.Name, Slug: d.Slug}, nil
}

func (m *memDepartments) Update(_ context.Context, id types.ID, d types.DepartmentDraft) (types.Department, error) {
	return types.Department{ID: id, Name: d.Name, Slug: d.Slug}, nil
}

func (m *memDepartments) Delete(context.Context, types.ID) error { return nil }

func ids(items []types.Department) []types.ID {
	out := make([]types.ID, len(items))
	for i, d := range items {
		out[i] = d.ID
	}
	return out
}

func assertUnique(t *testing.T, items []types.Department) {
	t.Helper()
	seen := map[types.ID]bool{}
	for _, d := range items {
		assert.False(t, seen[d.ID], "duplicate ID %s", d.ID)
		seen[d.ID] = true
	}
}

func TestCollection_FetchKeepsFirstOfDuplicates(t *testing.T) {
	svc := &memDepartments{list: []types.Department{
		{ID: "1", Name: "first"},
		{ID: "2", Name: "two"},
		{ID: "1", Name: "again"},
	}}
	s := NewDepartmentStore(svc, Options{})
	require.NoError(t, s.FetchAll(context.Background()))

	items := s.Items()
	assert.Equal(t, []types.ID{"1", "2"}, ids(items))
	assert.Equal(t, "first", items[0].Name)
}

func TestCollection_CreateWithExistingIDReplaces(t *testing.T) {
	svc := &memDepartments{list: []types.Department{{ID: "1", Name: "old"}, {ID: "2"}}}
	s := NewDepartmentStore(svc, Options{})
	ctx := context.Background()
	require.NoError(t, s.FetchAll(ctx))

	svc.reuseID = "1"
	s.UpdateForm(func(d *types.DepartmentDraft) { d.Name = "new" })
	require.NoError(t, s.Create(ctx))

	items := s.Items()
	assert.Equal(t, []types.ID{"1", "2"}, ids(items))
	assert.Equal(t, "new", items[0].Name)
}

func TestCollection_CreateEntityReturnsStoredRecord(t *testing.T) {
	svc := &memDepartments{list: []types.Department{{ID: "1", Name: "old"}, {ID: "2"}}}
	s := NewDepartmentStore(svc, Options{})
	ctx := context.Background()
	require.NoError(t, s.FetchAll(ctx))

	svc.reuseID = "1"
	s.UpdateForm(func(d *types.DepartmentDraft) { d.Name = "new" })
	created, err := s.CreateEntity(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.Department{ID: "1", Name: "new"}, created)

	items := s.Items()
	assert.Equal(t, types.ID("2"), items[len(items)-1].ID, "the replaced entry keeps its position")
}

func TestCollection_FetchErrorKeepsItems(t *testing.T) {
	svc := &memDepartments{list: []types.Department{{ID: "1"}}}
	var got []Notice
	s := NewDepartmentStore(svc, Options{Notifier: NotifierFunc(func(n Notice) { got = append(got, n) })})
	ctx := context.Background()
	require.NoError(t, s.FetchAll(ctx))

	svc.listErr = errors.New("offline")
	assert.Error(t, s.FetchAll(ctx))
	assert.Equal(t, []types.ID{"1"}, ids(s.Items()))
	assert.Equal(t, []Notice{{Level: LevelError, Message: "Failed to load departments"}}, got)
	assert.EqualError(t, s.Snapshot().Err, "offline")
}

func TestCollection_IDsStayUnique(t *testing.T) {
	svc := &memDepartments{}
	s := NewDepartmentStore(svc, Options{})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		s.UpdateForm(func(d *types.DepartmentDraft) { d.Name = fmt.Sprintf("d%d", i) })
		require.NoError(t, s.Create(ctx))
	}
	svc.reuseID = "3"
	require.NoError(t, s.Create(ctx))
	require.NoError(t, s.Update(ctx, "2"))
	require.NoError(t, s.Delete(ctx, "4"))
	require.NoError(t, s.Update(ctx, "404"))
	require.NoError(t, s.Delete(ctx, "404"))

	assert.Equal(t, []types.ID{"1", "2", "3", "5"}, ids(s.Items()))
	assertUnique(t, s.Items())
}

func TestCollection_ConcurrentCreates(t *testing.T) {
	svc := &memDepartments{}
	s := NewDepartmentStore(svc, Options{})
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Create(ctx))
		}()
	}
	wg.Wait()

	assert.Len(t, s.Items(), n)
	assertUnique(t, s.Items())
	assert.False(t, s.Loading())
}

func TestCollection_ListenersSeeTransitionsInOrder(t *testing.T) {
	s := NewDepartmentStore(&memDepartments{}, Options{})

	var mu sync.Mutex
	var seen []string
	s.Subscribe(func(snap Snapshot[types.Department, types.DepartmentDraft]) {
		if snap.Draft.Name == "a" {
			time.Sleep(50 * time.Millisecond)
		}
		mu.Lock()
		seen = append(seen, snap.Draft.Name)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.NoError(t, s.SetFormField("name", "a"))
	}()
	go func() {
		defer wg.Done()
		time.Sleep(10 * time.Millisecond)
		assert.NoError(t, s.SetFormField("name", "b"))
	}()
	wg.Wait()

	require.Equal(t, "b", s.Draft().Name)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestCollection_ConcurrentCreatesNotifyInOrder(t *testing.T) {
	s := NewDepartmentStore(&memDepartments{}, Options{})
	ctx := context.Background()

	var mu sync.Mutex
	var counts []int
	var last Snapshot[types.Department, types.DepartmentDraft]
	s.Subscribe(func(snap Snapshot[types.Department, types.DepartmentDraft]) {
		mu.Lock()
		defer mu.Unlock()
		counts = append(counts, len(snap.Items))
		last = snap
	})

	const n = 30
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Create(ctx))
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, counts, 2*n, "one snapshot for begin and one for the result")
	for i := 1; i < len(counts); i++ {
		assert.GreaterOrEqual(t, counts[i], counts[i-1], "snapshot %d went back in time", i)
	}
	assert.Len(t, last.Items, n)
	assert.False(t, last.Loading)
}

func TestCollection_ListenerMayChangeStore(t *testing.T) {
	s := NewDepartmentStore(&memDepartments{}, Options{})

	var names []string
	s.Subscribe(func(snap Snapshot[types.Department, types.DepartmentDraft]) {
		names = append(names, snap.Draft.Name)
		if snap.Draft.Name == "draft" {
			s.ResetForm()
		}
	})

	require.NoError(t, s.SetFormField("name", "draft"))
	assert.Equal(t, []string{"draft", ""}, names)
	assert.Empty(t, s.Draft().Name)
}

func TestReplaceAt(t *testing.T) {
	items := []types.Department{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	got := replaceAt(items, 2, types.Department{ID: "1", Name: "moved"})
	assert.Equal(t, []types.Department{{ID: "2"}, {ID: "1", Name: "moved"}}, got)
}

func TestLogNotifierDoesNotPanic(t *testing.T) {
	n := LogNotifier(Options{}.log())
	assert.NotPanics(t, func() {
		n.Notify(Notice{Level: LevelSuccess, Message: "ok"})
		n.Notify(Notice{Level: LevelError, Message: "bad"})
	})
	assert.Equal(t, "error", LevelError.String())
	assert.Equal(t, "success", LevelSuccess.String())
}
