package models

import (
	"strings"
	"time"
)

type UserRole string
type Role = UserRole // Alias for compatibility

const (
	RoleStudent   UserRole = "student"
	RoleAdmin     UserRole = "admin"
	RoleExecutive UserRole = "executive"

	// RoleOrganizer is the deprecated spelling of RoleAdmin found in older profile rows.
	RoleOrganizer UserRole = "organizer"
)

// ParseRole maps a persisted role value to a UserRole.
// Unknown values resolve to student so a bad row never escalates privileges.
func ParseRole(value string) UserRole {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "admin", "organizer":
		return RoleAdmin
	case "executive":
		return RoleExecutive
	default:
		return RoleStudent
	}
}

func (r UserRole) IsValid() bool {
	switch r {
	case RoleStudent, RoleAdmin, RoleExecutive:
		return true
	}
	return false
}

func (r UserRole) String() string {
	return string(r)
}

// Principal is the authenticated actor passed to every controller call.
type Principal struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Role  UserRole `json:"role"`
}

// Anonymous is the principal of an unauthenticated caller.
var Anonymous = Principal{}

func NewPrincipal(id, email string, role UserRole) Principal {
	return Principal{ID: id, Email: email, Role: ParseRole(string(role))}
}

func (p Principal) IsAuthenticated() bool {
	return p.ID != ""
}

func (p Principal) IsStudent() bool {
	return p.IsAuthenticated() && p.Role == RoleStudent
}

func (p Principal) IsAdmin() bool {
	return p.IsAuthenticated() && p.Role == RoleAdmin
}

func (p Principal) IsExecutive() bool {
	return p.IsAuthenticated() && p.Role == RoleExecutive
}

// Profile is the persisted account record the role is resolved from.
type Profile struct {
	ID          string   `json:"id" gorm:"primaryKey;size:255"`
	Email       string   `json:"email" gorm:"uniqueIndex;not null;size:255"`
	FullName    string   `json:"full_name" gorm:"not null;size:100"`
	Phone       *string  `json:"phone" gorm:"size:20"`
	RollNumber  *string  `json:"roll_number" gorm:"size:50"`
	Department  *string  `json:"department" gorm:"size:100"`
	YearOfStudy *int     `json:"year_of_study"`
	Role        UserRole `json:"role" gorm:"not null;default:student;size:20"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}

// MissingContactFields lists the contact fields a registration copies that are still empty.
func (p *Profile) MissingContactFields() []string {
	var missing []string
	if strings.TrimSpace(p.FullName) == "" {
		missing = append(missing, "full_name")
	}
	if strings.TrimSpace(p.Email) == "" {
		missing = append(missing, "email")
	}
	if p.Phone == nil || strings.TrimSpace(*p.Phone) == "" {
		missing = append(missing, "phone")
	}
	if p.RollNumber == nil || strings.TrimSpace(*p.RollNumber) == "" {
		missing = append(missing, "roll_number")
	}
	return missing
}
