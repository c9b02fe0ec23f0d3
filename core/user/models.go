package user

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/grupka/grupka/core"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"displayName"`
	Phone        string    `json:"phone,omitempty"`
	IsActive     bool      `json:"isActive"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"` // UTC
	UpdatedAt    time.Time `json:"updatedAt"` // UTC
	LastLogin    time.Time `json:"lastLogin"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

// Contact is what other group members may learn about a User through an admin-contact reveal.
type Contact struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
}

func (u User) Contact() Contact {
	return Contact{UserID: u.ID, DisplayName: u.DisplayName, Email: u.Email, Phone: u.Phone}
}

// NewUser contains information needed to register a new User.
type NewUser struct {
	Email           string `json:"email" validate:"required,email,max=254"`
	DisplayName     string `json:"displayName" validate:"required,notblank,max=100"`
	Phone           string `json:"phone" validate:"omitempty,max=30"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Validate() error {
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.DisplayName = core.CleanString(nu.DisplayName)
	nu.Phone = core.CleanString(nu.Phone)
	return core.Validate.Struct(nu)
}

// UpdateProfile defines what a User may change on their own profile.
// Nil fields are left untouched; an empty phone clears it.
type UpdateProfile struct {
	DisplayName *string `json:"displayName" validate:"omitempty,notblank,max=100"`
	Phone       *string `json:"phone" validate:"omitempty,max=30"`
}

func (up *UpdateProfile) Validate() error {
	if up.DisplayName != nil {
		up.DisplayName = core.StringPtr(core.CleanString(*up.DisplayName))
	}
	if up.Phone != nil {
		up.Phone = core.StringPtr(core.CleanString(*up.Phone))
	}
	return core.Validate.Struct(up)
}

type ResetUserPassword struct {
	Token           string `json:"token" validate:"required"`
	UID             string `json:"uid" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate() error { return core.Validate.Struct(rp) }

type Credentials struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (c *Credentials) Validate() error {
	c.Email = core.CleanString(c.Email, true /* lower */)
	return core.Validate.Struct(c)
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (pr *PasswordResetRequest) Validate() error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return core.Validate.Struct(pr)
}
