package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

type UserRole string

const (
	UserRoleAdmin    UserRole = "admin"
	UserRoleReporter UserRole = "reporter"
	UserRoleViewer   UserRole = "viewer"
)

var RoleHierarchy = map[UserRole]int{
	UserRoleReporter: 1,
	UserRoleViewer:   2,
	UserRoleAdmin:    3,
}

type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email     string             `bson:"email" json:"email"`
	Name      string             `bson:"name" json:"name"`
	Password  string             `bson:"password" json:"-"`
	Role      UserRole           `bson:"role" json:"role"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt"`
}

func (u *User) HasHigherRole(role UserRole) bool {
	return RoleHierarchy[u.Role] > RoleHierarchy[role]
}

func (u *User) HasEqualOrHigherRole(role UserRole) bool {
	return RoleHierarchy[u.Role] >= RoleHierarchy[role]
}

func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleAdmin, UserRoleReporter, UserRoleViewer:
		return true
	default:
		return false
	}
}

// ParseRoles converts raw role names, skipping unknown ones.
func ParseRoles(raw []string) []UserRole {
	roles := make([]UserRole, 0, len(raw))
	for _, r := range raw {
		role := UserRole(r)
		if role.IsValid() {
			roles = append(roles, role)
		}
	}
	return roles
}

const minPasswordLength = 6

// Normalize trims the profile and checks the fields required to create a user.
func (u *User) Normalize() error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.Name = strings.TrimSpace(u.Name)
	if u.Email == "" || u.Name == "" {
		return fmt.Errorf("name and email are required")
	}
	if !u.Role.IsValid() {
		return fmt.Errorf("unknown role %q", u.Role)
	}
	return nil
}

// SetPassword stores the bcrypt hash of plain.
func (u *User) SetPassword(plain string) error {
	if len(plain) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	u.Password = string(hashed)
	return nil
}

func (u *User) CheckPassword(plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(plain)) == nil
}
