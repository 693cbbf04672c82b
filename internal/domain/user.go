package domain

import (
	"fmt"
	"time"
)

// User is a member of a department. Managers have elevated authority over
// tickets owned by their department.
type User struct {
	ID           int64
	EmployeeCode string
	Name         string
	Department   string
	IsManager    bool
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Equal compares users by id only.
func (u User) Equal(other User) bool {
	return u.ID == other.ID
}

// ManagesDepartment reports whether u is a manager of dept.
func (u User) ManagesDepartment(dept string) bool {
	return u.IsManager && u.Department == dept
}

// label renders "(code) name" for audit messages.
func (u User) label() string {
	return fmt.Sprintf("(%s) %s", u.EmployeeCode, u.Name)
}

// ContainsUser reports whether list holds a user with the same id as u.
func ContainsUser(list []User, u User) bool {
	for _, candidate := range list {
		if candidate.Equal(u) {
			return true
		}
	}
	return false
}
