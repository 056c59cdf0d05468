package store

import (
	"context"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/catalog/internal/transport"
	"github.com/mesh-intelligence/catalog/pkg/types"
)

// AuthService is what AuthStore needs from the service layer.
type AuthService interface {
	Login(ctx context.Context, c types.Credentials) (types.AuthResponse, error)
	Register(ctx context.Context, c types.Credentials) (types.AuthResponse, error)
	CurrentUser(ctx context.Context) (types.User, error)
	PrimeCSRF(ctx context.Context) error
}

// AuthState is a copy of the auth store's state.
type AuthState struct {
	Form          types.Credentials
	FieldErrors   map[string]string // per-field "cannot be empty" messages
	DisableSubmit bool
	User          types.User
	Token         string
	Loading       bool
	Err           error
}

// Authenticated reports whether a user is signed in.
func (s AuthState) Authenticated() bool { return !s.User.IsZero() }

// AuthStore holds the sign-in form and the current user.
type AuthStore struct {
	svc      AuthService
	validate *validator.Validate
	notifier Notifier
	log      *logrus.Entry

	mu    sync.Mutex
	state AuthState
	subs  broadcaster[AuthState]
}

// NewAuthStore returns a signed-out auth store.
func NewAuthStore(svc AuthService, opts Options) *AuthStore {
	return &AuthStore{
		svc:      svc,
		validate: validator.New(),
		notifier: opts.notifier(),
		log:      opts.log().WithField("store", "auth"),
		state:    AuthState{FieldErrors: map[string]string{}},
	}
}

// State returns a copy of the current state.
func (s *AuthStore) State() AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked()
}

// User returns the signed-in user, or the zero User.
func (s *AuthStore) User() types.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.User
}

// Subscribe registers fn and returns a function that removes it.
func (s *AuthStore) Subscribe(fn func(AuthState)) (unsubscribe func()) {
	return s.subs.subscribe(fn)
}

// SetFormField assigns name, email or password.
func (s *AuthStore) SetFormField(key string, value any) error {
	var err error
	s.transition(func() { err = s.state.Form.Set(key, value) })
	if err != nil {
		s.log.WithField("field", key).Warn("form field does not exist")
	}
	return err
}

// ResetForm clears the form and its field messages.
func (s *AuthStore) ResetForm() {
	s.transition(func() {
		s.state.Form = types.Credentials{}
		s.state.FieldErrors = map[string]string{}
		s.state.DisableSubmit = false
	})
}

// CheckRequired records "<label> cannot be empty!" for an empty field and
// disables submit, or clears the message and enables submit. It reports
// whether the field is filled in. Unknown fields count as empty.
func (s *AuthStore) CheckRequired(field, label string) bool {
	ok := false
	s.transition(func() {
		value, _ := s.state.Form.Field(field)
		ok = s.validate.Var(value, "required") == nil
		if !ok {
			s.state.FieldErrors[field] = label + " cannot be empty!"
			s.state.DisableSubmit = true
			return
		}
		s.state.FieldErrors[field] = ""
		s.state.DisableSubmit = false
	})
	return ok
}

// FetchUser loads the signed-in user. Any failure, an unauthenticated
// session included, leaves the store signed out; it is logged and not
// returned.
func (s *AuthStore) FetchUser(ctx context.Context) {
	s.transition(func() { s.state.Loading = true })
	user, err := s.svc.CurrentUser(ctx)
	s.transition(func() {
		s.state.Loading = false
		s.state.Err = err
		if err != nil {
			user = types.User{}
		}
		s.state.User = user
	})
	if err != nil {
		s.log.WithError(err).Info("failed to fetch user")
	}
}

// Login signs in with the form's email and password.
func (s *AuthStore) Login(ctx context.Context) error {
	return s.authenticate(ctx, s.svc.Login, "Signed in successfully", "Failed to sign in")
}

// Register creates an account from the form and signs in.
func (s *AuthStore) Register(ctx context.Context) error {
	return s.authenticate(ctx, s.svc.Register, "Account created successfully", "Failed to register")
}

func (s *AuthStore) authenticate(
	ctx context.Context,
	call func(context.Context, types.Credentials) (types.AuthResponse, error),
	success, failure string,
) error {
	var form types.Credentials
	s.transition(func() {
		s.state.Loading = true
		form = s.state.Form
	})

	resp, err := call(ctx, form)
	s.transition(func() {
		s.state.Loading = false
		s.state.Err = err
		if err != nil {
			return
		}
		s.state.User = resp.User
		s.state.Token = resp.Token
		s.state.Form.Password = ""
	})

	if err != nil {
		msg := transport.ServerMessage(err)
		if msg == "" {
			msg = failure
		}
		s.notifier.Notify(Notice{Level: LevelError, Message: msg})
		return err
	}
	s.log.WithField("email", resp.User.Email).Debug("authenticated")
	s.notifier.Notify(Notice{Level: LevelSuccess, Message: success})
	return nil
}

// PrimeCSRF fetches a token ahead of the first form submission.
func (s *AuthStore) PrimeCSRF(ctx context.Context) error {
	return s.svc.PrimeCSRF(ctx)
}

func (s *AuthStore) transition(fn func()) {
	s.mu.Lock()
	fn()
	s.subs.publish(s.copyLocked())
	s.mu.Unlock()
	s.subs.drain()
}

func (s *AuthStore) copyLocked() AuthState {
	out := s.state
	out.FieldErrors = make(map[string]string, len(s.state.FieldErrors))
	for k, v := range s.state.FieldErrors {
		out.FieldErrors[k] = v
	}
	return out
}
