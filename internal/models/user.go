package models

import "time"

// User represents a row in the PostgreSQL users table.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Password  string    `json:"-"` // bcrypt hash, never serialize
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	AvatarKey string    `json:"avatar_key"`
	CreatedAt time.Time `json:"created_at"`
}

// RegisterForm is the form body for POST /user/register/.
type RegisterForm struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password1 string `json:"-"`
	Password2 string `json:"-"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

// LoginForm is the form body for POST /user/login/.
type LoginForm struct {
	Username string `json:"username"`
	Password string `json:"-"`
}

// ProfileForm is the form body for POST /user/profile/.
// Empty fields mean "leave the stored value untouched".
type ProfileForm struct {
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address   string `json:"address"`
}

// PasswordChangeForm is the form body for POST /user/password-change/.
type PasswordChangeForm struct {
	Current string
	New     string
	Confirm string
}

// FieldErrors maps a form field name to the messages for that field.
// An empty map means the form validated.
type FieldErrors map[string][]string

// Add appends a message for the given field.
func (e FieldErrors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Has reports whether the field has at least one error.
func (e FieldErrors) Has(field string) bool {
	return len(e[field]) > 0
}

// Empty reports whether no field has errors.
func (e FieldErrors) Empty() bool {
	return len(e) == 0
}
