// Package auth registers and authenticates local accounts.
package auth

import "time"

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
)

// Identity is the authenticated caller.
type Identity struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// Profile is the public part of an account. Credentials are stored separately.
type Profile struct {
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Registration is the sign-up form.
type Registration struct {
	Username        string `json:"username"        validate:"required,alphanum,min=3,max=32"`
	Name            string `json:"name"            validate:"required,max=100"`
	Email           string `json:"email"           validate:"required,email"`
	Password        string `json:"password"        validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

type credential struct {
	Hash string `json:"hash"`
}
