package group

import (
	"strings"
	"time"

	"github.com/grupka/grupka/core"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

func (r Role) Valid() bool { return r == RoleAdmin || r == RoleMember }

type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"` // UTC
	UpdatedAt time.Time `json:"updatedAt"` // UTC
}

// UserGroup is a Group seen by one of its members.
type UserGroup struct {
	Group
	Role Role `json:"role"`
}

type Membership struct {
	GroupID  string    `json:"groupId"`
	UserID   string    `json:"userId"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joinedAt"` // UTC
}

func (m Membership) IsAdmin() bool { return m.Role == RoleAdmin }

// Member is the public view of a Membership: no contact details.
type Member struct {
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	Role        Role      `json:"role"`
	JoinedAt    time.Time `json:"joinedAt"` // UTC
}

type Invite struct {
	Code      string    `json:"code"`
	GroupID   string    `json:"groupId"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"` // UTC
	ExpiresAt time.Time `json:"expiresAt"` // UTC
}

// Expired reports whether the Invite can no longer be used at t.
func (inv Invite) Expired(t time.Time) bool {
	return !t.Before(inv.ExpiresAt)
}

type InvitePreview struct {
	Code      string    `json:"code"`
	GroupID   string    `json:"groupId"`
	GroupName string    `json:"groupName"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type NewGroup struct {
	Name string `json:"name" validate:"required,notblank,max=100"`
}

func (ng *NewGroup) Validate() error {
	ng.Name = core.CleanString(ng.Name)
	return core.Validate.Struct(ng)
}

type UpdateGroup struct {
	Name *string `json:"name" validate:"omitempty,notblank,max=100"`
}

func (ug *UpdateGroup) Validate() error {
	if ug.Name != nil {
		ug.Name = core.StringPtr(core.CleanString(*ug.Name))
	}
	return core.Validate.Struct(ug)
}

type UpdateMember struct {
	Role Role `json:"role" validate:"required,grouprole"`
}

func (um *UpdateMember) Validate() error {
	um.Role = Role(core.CleanString(string(um.Role), true /* lower */))
	return core.Validate.Struct(um)
}

type JoinGroup struct {
	Code string `json:"code" validate:"required"`
}

func (jg *JoinGroup) Validate() error {
	jg.Code = strings.ToUpper(core.CleanString(jg.Code))
	return core.Validate.Struct(jg)
}

type SendInvites struct {
	Emails []string `json:"emails" validate:"required,min=1,max=20,dive,email"`
}

func (si *SendInvites) Validate() error {
	for i, email := range si.Emails {
		si.Emails[i] = core.CleanString(email, true /* lower */)
	}
	return core.Validate.Struct(si)
}
