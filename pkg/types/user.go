package types

// User is the authenticated account. The zero User means "not signed in".
type User struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// IsZero reports whether no user is signed in.
func (u User) IsZero() bool { return u.ID.IsZero() && u.Email == "" }

// Credentials backs the login and registration forms.
type Credentials struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Set implements Draft.
func (c *Credentials) Set(key string, value any) error {
	switch key {
	case "name":
		return setString(&c.Name, key, value)
	case "email":
		return setString(&c.Email, key, value)
	case "password":
		return setString(&c.Password, key, value)
	default:
		return unknownField(key)
	}
}

// Field returns the current value of the named field, or false if the
// field does not exist.
func (c Credentials) Field(key string) (string, bool) {
	switch key {
	case "name":
		return c.Name, true
	case "email":
		return c.Email, true
	case "password":
		return c.Password, true
	default:
		return "", false
	}
}

// AuthResponse is returned by the login and register endpoints.
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
