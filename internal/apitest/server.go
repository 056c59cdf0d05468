// Package apitest runs an in-process fake of the catalog REST service for
// tests. It issues CSRF tokens through a session cookie the way the real
// service does, answers 419 on a token mismatch, and keeps departments,
// categories, products and users in memory.
package apitest

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mesh-intelligence/catalog/pkg/types"
)

// SessionCookieName is the cookie that ties a client to its CSRF token.
const SessionCookieName = "catalog_session"

// Recorded is one request seen by the API routes.
type Recorded struct {
	Method string
	Path   string
	Token  string // X-XSRF-TOKEN header as received
}

type account struct {
	user     types.User
	password string
}

type failure struct {
	status  int
	message string
}

// Server is the fake service. Its zero value is not usable; call New.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	sessions    map[string]string // session id -> token
	signedIn    map[string]types.ID
	accounts    map[string]account // by email
	departments []types.Department
	categories  []types.Category
	products    []types.Product
	nextID      int

	primes     int
	withhold   bool
	expireNext int
	failures   map[string][]failure // "METHOD /path" -> queued failures
	gates      map[string]*Gate
	requests   []Recorded
}

// New starts a server and registers its shutdown with t.
func New(t testing.TB) *Server {
	s := &Server{
		sessions: make(map[string]string),
		signedIn: make(map[string]types.ID),
		accounts: make(map[string]account),
		failures: make(map[string][]failure),
		gates:    make(map[string]*Gate),
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

// BaseURL is the API root to configure clients with.
func (s *Server) BaseURL() string { return s.URL + "/api/" }

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Get(types.CSRFPath, s.issueToken)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.record, s.verifyToken)

		r.Get("/user", s.currentUser)
		r.Post("/login", s.login)
		r.Post("/register", s.register)

		r.Route("/departments", func(r chi.Router) {
			r.Get("/", s.listDepartments)
			r.Post("/", s.createDepartment)
			r.Get("/{id}", s.getDepartment)
			r.Put("/{id}", s.updateDepartment)
			r.Delete("/{id}", s.deleteDepartment)
		})
		r.Route("/categories", func(r chi.Router) {
			r.Get("/", s.listCategories)
			r.Post("/", s.createCategory)
			r.Get("/{id}", s.getCategory)
			r.Put("/{id}", s.updateCategory)
			r.Delete("/{id}", s.deleteCategory)
		})
		r.Route("/products", func(r chi.Router) {
			r.Get("/", s.listProducts)
			r.Post("/", s.createProduct)
			r.Get("/{id}", s.getProduct)
			r.Put("/{id}", s.updateProduct)
			r.Delete("/{id}", s.deleteProduct)
		})
	})
	return r
}

// --- controls ---

// ExpireTokens makes the next n mutating requests fail with 419 regardless
// of the token they carry.
func (s *Server) ExpireTokens(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireNext = n
}

// InvalidateSessions forgets every issued token, as a server restart would.
func (s *Server) InvalidateSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]string)
}

// WithholdTokens makes the token endpoint answer without setting the cookie.
func (s *Server) WithholdTokens(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.withhold = on
}

// FailNext queues a failure for the next request matching method and path
// (path relative to /api, e.g. "/products").
func (s *Server) FailNext(method, path string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + path
	s.failures[key] = append(s.failures[key], failure{status: status, message: message})
}

// Primes returns how many times the token endpoint was called.
func (s *Server) Primes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.primes
}

// Requests returns the API requests seen so far.
func (s *Server) Requests() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Recorded(nil), s.requests...)
}

// CountRequests returns how many API requests matched method and path.
func (s *Server) CountRequests(method, path string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// Gate holds a matching request inside the handler until released.
type Gate struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

// Entered is closed once a request reaches the gate.
func (g *Gate) Entered() <-chan struct{} { return g.entered }

// Release lets the held request continue.
func (g *Gate) Release() { close(g.release) }

// Hold installs a gate for the next request matching method and path.
func (s *Server) Hold(method, path string) *Gate {
	g := &Gate{entered: make(chan struct{}), release: make(chan struct{})}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gates[method+" "+path] = g
	return g
}

// --- seeding and inspection ---

// AddDepartment stores d, assigning an ID when it has none.
func (s *Server) AddDepartment(d types.Department) types.Department {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID.IsZero() {
		d.ID = s.newID()
	}
	s.stamp(&d.CreatedAt, &d.UpdatedAt)
	s.departments = append(s.departments, d)
	return d
}

// AddCategory stores c, assigning an ID when it has none.
func (s *Server) AddCategory(c types.Category) types.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID.IsZero() {
		c.ID = s.newID()
	}
	if c.Slug == "" {
		c.Slug = types.Slugify(c.Name)
	}
	s.stamp(&c.CreatedAt, &c.UpdatedAt)
	s.categories = append(s.categories, c)
	return c
}

// AddProduct stores p, assigning an ID when it has none.
func (s *Server) AddProduct(p types.Product) types.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = s.newID()
	}
	if p.Slug == "" {
		p.Slug = types.Slugify(p.Name)
	}
	s.stamp(&p.CreatedAt, &p.UpdatedAt)
	s.products = append(s.products, p)
	return p
}

// AddUser registers an account that can log in.
func (s *Server) AddUser(name, email, password string) types.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := types.User{ID: s.newID(), Name: name, Email: email}
	s.accounts[email] = account{user: u, password: password}
	return u
}

// Departments returns the stored departments.
func (s *Server) Departments() []types.Department {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Department(nil), s.departments...)
}

// Products returns the stored products.
func (s *Server) Products() []types.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Product(nil), s.products...)
}

// --- middleware ---

func (s *Server) issueToken(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.primes++

	session := ""
	if c, err := r.Cookie(SessionCookieName); err == nil {
		session = c.Value
	}
	if session == "" {
		session = uuid.NewString()
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookieName, Value: session, Path: "/", HttpOnly: true})

	if s.withhold {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	raw := uuid.New()
	token := base64.StdEncoding.EncodeToString(raw[:])
	s.sessions[session] = token
	http.SetCookie(w, &http.Cookie{Name: types.CSRFCookieName, Value: url.QueryEscape(token), Path: "/"})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api")
		key := r.Method + " " + path

		s.mu.Lock()
		s.requests = append(s.requests, Recorded{Method: r.Method, Path: path, Token: r.Header.Get(types.CSRFHeaderName)})
		gate := s.gates[key]
		delete(s.gates, key)
		s.mu.Unlock()

		if gate != nil {
			gate.once.Do(func() { close(gate.entered) })
			<-gate.release
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) verifyToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			if s.popFailure(w, r) {
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		s.mu.Lock()
		forced := s.expireNext > 0
		if forced {
			s.expireNext--
		}
		want := ""
		if c, err := r.Cookie(SessionCookieName); err == nil {
			want = s.sessions[c.Value]
		}
		s.mu.Unlock()

		got := r.Header.Get(types.CSRFHeaderName)
		if forced || want == "" || got != want {
			writeMessage(w, types.StatusTokenExpired, "CSRF token mismatch.")
			return
		}
		if s.popFailure(w, r) {
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) popFailure(w http.ResponseWriter, r *http.Request) bool {
	key := r.Method + " " + strings.TrimPrefix(r.URL.Path, "/api")
	s.mu.Lock()
	queue := s.failures[key]
	if len(queue) == 0 {
		s.mu.Unlock()
		return false
	}
	f := queue[0]
	s.failures[key] = queue[1:]
	s.mu.Unlock()

	writeMessage(w, f.status, f.message)
	return true
}

// --- auth ---

func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		writeMessage(w, http.StatusUnauthorized, "Unauthenticated.")
		return
	}
	id, ok := s.signedIn[c.Value]
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Unauthenticated.")
		return
	}
	for _, a := range s.accounts {
		if a.user.ID == id {
			writeJSON(w, http.StatusOK, a.user)
			return
		}
	}
	writeMessage(w, http.StatusUnauthorized, "Unauthenticated.")
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in types.Credentials
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[in.Email]
	if !ok || a.password != in.Password {
		writeMessage(w, http.StatusUnprocessableEntity, "These credentials do not match our records.")
		return
	}
	s.signIn(r, a.user.ID)
	writeJSON(w, http.StatusOK, types.AuthResponse{Token: uuid.NewString(), User: a.user})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var in types.Credentials
	if !decode(w, r, &in) {
		return
	}
	if in.Name == "" || in.Email == "" || in.Password == "" {
		writeMessage(w, http.StatusUnprocessableEntity, "The name, email and password fields are required.")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[in.Email]; exists {
		writeMessage(w, http.StatusUnprocessableEntity, "The email has already been taken.")
		return
	}
	u := types.User{ID: s.newID(), Name: in.Name, Email: in.Email}
	s.accounts[in.Email] = account{user: u, password: in.Password}
	s.signIn(r, u.ID)
	writeJSON(w, http.StatusCreated, types.AuthResponse{Token: uuid.NewString(), User: u})
}

func (s *Server) signIn(r *http.Request, id types.ID) {
	if c, err := r.Cookie(SessionCookieName); err == nil {
		s.signedIn[c.Value] = id
	}
}

// --- departments (bare JSON, no envelope) ---

func (s *Server) listDepartments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Departments())
}

func (s *Server) getDepartment(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.departments, chi.URLParam(r, "id"))
	if i < 0 {
		writeMessage(w, http.StatusNotFound, "Department not found.")
		return
	}
	writeJSON(w, http.StatusOK, s.departments[i])
}

func (s *Server) createDepartment(w http.ResponseWriter, r *http.Request) {
	var in types.DepartmentDraft
	if !decode(w, r, &in) {
		return
	}
	if in.Name == "" {
		writeMessage(w, http.StatusUnprocessableEntity, "The name field is required.")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d := types.Department{ID: s.newID(), Name: in.Name, Slug: in.Slug, Active: 1}
	s.stamp(&d.CreatedAt, &d.UpdatedAt)
	s.departments = append(s.departments, d)
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) updateDepartment(w http.ResponseWriter, r *http.Request) {
	var in types.DepartmentDraft
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.departments, chi.URLParam(r, "id"))
	if i < 0 {
		writeMessage(w, http.StatusNotFound, "Department not found.")
		return
	}
	d := s.departments[i]
	d.Name, d.Slug = in.Name, in.Slug
	d.UpdatedAt = now()
	s.departments[i] = d
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) deleteDepartment(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.departments, chi.URLParam(r, "id"))
	if i < 0 {
		writeMessage(w, http.StatusNotFound, "Department not found.")
		return
	}
	s.departments = append(s.departments[:i], s.departments[i+1:]...)
	w.WriteHeader(http.StatusNoContent)
}

// --- categories ({"data": ...} envelope) ---

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dept := r.URL.Query().Get("department_id")
	out := []types.Category{}
	for _, c := range s.categories {
		if dept == "" || c.DepartmentID.String() == dept {
			out = append(out, c)
		}
	}
	writeJSON(w, http.StatusOK, envelope{Data: out})
}

func (s *Server) getCategory(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.categories, chi.URLParam(r, "id"))
	if i < 0 {
		writeMessage(w, http.StatusNotFound, "Category not found.")
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: s.categories[i]})
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request) {
	var in types.CategoryDraft
	if !decode(w, r, &in) {
		return
	}
	if in.Name == "" || in.DepartmentID.IsZero() {
		writeMessage(w, http.StatusUnprocessableEntity, "The name and department fields are required.")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := types.Category{
		ID:           s.newID(),
		Name:         in.Name,
		Slug:         in.Slug,
		DepartmentID: in.DepartmentID,
		ParentID:     in.ParentID,
		Active:       1,
	}
	if c.Slug == "" {
		c.Slug = types.Slugify(c.Name)
	}
	s.stamp(&c.CreatedAt, &c.UpdatedAt)
	s.categories = append(s.categories, c)
	writeJSON(w, http.StatusCreated, envelope{Data: c, Message: "Category created."})
}

func (s *Server) updateCategory(w http.ResponseWriter, r *http.Request) {
	var in types.CategoryDraft
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.categories, chi.URLParam(r, "id"))
	if i < 0 {
		writeMessage(w, http.StatusNotFound, "Category not found.")
		return
	}
	c := s.categories[i]
	c.Name, c.DepartmentID, c.ParentID = in.Name, in.DepartmentID, in.ParentID
	if in.Slug != "" {
		c.Slug = in.Slug
	}
	c.UpdatedAt = now()
	s.categories[i] = c
	writeJSON(w, http.StatusOK, envelope{Data: c})
}

func (s *Server) deleteCategory(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.categories, chi.URLParam(r, "id"))
	if i < 0 {
		writeMessage(w, http.StatusNotFound, "Category not found.")
		return
	}
	s.categories = append(s.categories[:i], s.categories[i+1:]...)
	w.WriteHeader(http.StatusNoContent)
}

// --- products ({"data": ...} envelope) ---

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []types.Product{}
	for _, p := range s.products {
		if v := q.Get("department_id"); v != "" && p.DepartmentID.String() != v {
			continue
		}
		if v := q.Get("category_id"); v != "" && p.CategoryID.String() != v {
			continue
		}
		if v := q.Get("status"); v != "" && p.Status != v {
			continue
		}
		if v, err := strconv.ParseFloat(q.Get("min_price"), 64); err == nil && p.Price < v {
			continue
		}
		if v, err := strconv.ParseFloat(q.Get("max_price"), 64); err == nil && p.Price > v {
			continue
		}
		if v := q.Get("search"); v != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(v)) {
			continue
		}
		out = append(out, p)
	}
	writeJSON(w, http.StatusOK, envelope{Data: out})
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.products, chi.URLParam(r, "id"))
	if i < 0 {
		writeMessage(w, http.StatusNotFound, "Product not found.")
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: s.products[i]})
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	var in types.ProductDraft
	if !decode(w, r, &in) {
		return
	}
	if in.Name == "" || in.DepartmentID.IsZero() || in.CategoryID.IsZero() {
		writeMessage(w, http.StatusUnprocessableEntity, "The name, department and category fields are required.")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := productFromDraft(in)
	p.ID = s.newID()
	if p.Slug == "" {
		p.Slug = types.Slugify(p.Name)
	}
	s.stamp(&p.CreatedAt, &p.UpdatedAt)
	s.products = append(s.products, p)
	writeJSON(w, http.StatusCreated, envelope{Data: p})
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	var in types.ProductDraft
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.products, chi.URLParam(r, "id"))
	if i < 0 {
		writeMessage(w, http.StatusNotFound, "Product not found.")
		return
	}
	old := s.products[i]
	p := productFromDraft(in)
	p.ID, p.CreatedAt, p.CreatedBy = old.ID, old.CreatedAt, old.CreatedBy
	if p.Slug == "" {
		p.Slug = old.Slug
	}
	p.UpdatedAt = now()
	s.products[i] = p
	writeJSON(w, http.StatusOK, envelope{Data: p})
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.products, chi.URLParam(r, "id"))
	if i < 0 {
		writeMessage(w, http.StatusNotFound, "Product not found.")
		return
	}
	s.products = append(s.products[:i], s.products[i+1:]...)
	w.WriteHeader(http.StatusNoContent)
}

// --- helpers ---

type envelope struct {
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
}

type identified interface{ EntityID() types.ID }

func indexOf[E identified](items []E, id string) int {
	for i, item := range items {
		if item.EntityID().String() == id {
			return i
		}
	}
	return -1
}

func productFromDraft(in types.ProductDraft) types.Product {
	return types.Product{
		Name:         in.Name,
		Slug:         in.Slug,
		Description:  in.Description,
		Price:        in.Price,
		Status:       in.Status,
		DepartmentID: in.DepartmentID,
		CategoryID:   in.CategoryID,
		Quantity:     in.Quantity,
		CreatedBy:    in.CreatedBy,
		UpdatedBy:    in.UpdatedBy,
	}
}

// newID must be called with s.mu held.
func (s *Server) newID() types.ID {
	s.nextID++
	return types.ID(strconv.Itoa(s.nextID))
}

func (s *Server) stamp(created, updated *time.Time) {
	if created.IsZero() {
		*created = now()
	}
	if updated.IsZero() {
		*updated = *created
	}
}

func now() time.Time { return time.Now().UTC().Truncate(time.Second) }

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeMessage(w, http.StatusBadRequest, "Malformed JSON body.")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
