package user

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/darasa/core"
)

// Role groups, as carried on the identity's group claims.
const (
	GroupTeacher    = "TEACHER"
	GroupAdmin      = "ADMIN"
	GroupSuperAdmin = "SUPERADMIN"
)

var (
	AllGroups   = []string{GroupTeacher, GroupAdmin, GroupSuperAdmin}
	AdminGroups = []string{GroupAdmin, GroupSuperAdmin}

	groupPriorities = map[string]int{
		GroupSuperAdmin: 30,
		GroupAdmin:      20,
		GroupTeacher:    10,
	}
)

func GroupPriority(group string) int {
	return groupPriorities[group]
}

// EffectiveRole resolves a caller's privilege level from their raw group
// claims; the highest-priority known group wins. Unknown groups are ignored.
// Returns "" when the caller belongs to no known group.
func EffectiveRole(groups []string) string {
	var role string
	var max int
	for _, g := range groups {
		if p := GroupPriority(g); p > max {
			max = p
			role = g
		}
	}
	return role
}

// HasAnyRole reports whether usr belongs to at least one of the allowed
// groups. A nil (unauthenticated) user never has any role.
func HasAnyRole(usr *User, allowed []string) bool {
	if usr == nil {
		return false
	}
	for _, g := range usr.Groups {
		for _, a := range allowed {
			if g == a {
				return true
			}
		}
	}
	return false
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	IsActive     bool      `json:"is_active"`
	Groups       []string  `json:"groups"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
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

func (u *User) Role() string { return EffectiveRole(u.Groups) }

func (u *User) IsTeacher() bool    { return u.Role() == GroupTeacher }
func (u *User) IsAdmin() bool      { return HasAnyRole(u, AdminGroups) }
func (u *User) IsSuperAdmin() bool { return u.Role() == GroupSuperAdmin }

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string   `json:"name" validate:"required"`
	Email           string   `json:"email" validate:"required,email"`
	Password        string   `json:"password" validate:"required"`
	PasswordConfirm string   `json:"password_confirm" validate:"required,eqfield=Password"`
	Groups          []string `json:"groups" validate:"omitempty,dive,oneof=TEACHER ADMIN SUPERADMIN"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.checkUniqueness(ctx, nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name     string   `json:"name"`
	Email    string   `json:"email" validate:"omitempty,email"`
	IsActive *bool    `json:"is_active"`
	Groups   []string `json:"groups" validate:"omitempty,dive,oneof=TEACHER ADMIN SUPERADMIN"`
}

func (uu *UpdateUser) Validate(ctx context.Context, origUsr User, validate *validator.Validate, svc *Service) error {
	if name := core.CleanString(uu.Name); name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}

	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.checkUniqueness(ctx, uu.Email, origUsr)
}

type QueryFilter struct {
	Search   string   `query:"search"`
	Groups   []string `query:"group"`
	IsActive *bool    `query:"is_active"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Groups == nil && qf.IsActive == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
