package domain

import "time"

// StaffRole enumerates internal operator roles.
type StaffRole string

const (
	StaffRoleTriage StaffRole = "TRIAGE"
	StaffRoleAdmin  StaffRole = "ADMIN"
)

// SubjectType differentiates staff tokens from reporter references.
type SubjectType string

const (
	SubjectTypeReporter SubjectType = "REPORTER"
	SubjectTypeStaff    SubjectType = "STAFF"
)

// StaffMember models a triage operator or administrator.
type StaffMember struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         StaffRole
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
