package service

import "github.com/noor-academy/manhaj-api/internal/models"

// Principal identifies the authenticated caller. Handlers build it from the
// verified JWT claims and thread it explicitly into every service call;
// services never read ambient session state.
type Principal struct {
	ID   uint
	Role string
}

// IsStudent reports whether the caller is a learner.
func (p Principal) IsStudent() bool {
	return p.Role == models.RoleStudent
}

// IsAdmin reports whether the caller is an administrator.
func (p Principal) IsAdmin() bool {
	return p.Role == models.RoleAdmin
}

// IsStaff reports whether the caller may manage content.
func (p Principal) IsStaff() bool {
	return p.Role == models.RoleTeacher || p.Role == models.RoleAdmin
}
