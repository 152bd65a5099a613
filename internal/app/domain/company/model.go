package company

import "time"

// EmployeeRole gates what a company member may do with applications.
type EmployeeRole string

const (
	RoleAdmin    EmployeeRole = "admin"
	RoleManager  EmployeeRole = "manager"
	RoleHR       EmployeeRole = "hr"
	RoleEmployee EmployeeRole = "employee"
)

// Privileged reports whether the role carries mutation rights over
// applications. Plain employees read but never mutate.
func (r EmployeeRole) Privileged() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleHR:
		return true
	}
	return false
}

// Employee is one member of a company's roster.
type Employee struct {
	UserID   string       `json:"user_id"`
	Role     EmployeeRole `json:"role"`
	IsActive bool         `json:"is_active"`
}

// Company is the snapshot the authorization resolver needs; the full company
// record is owned externally.
type Company struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Employees []Employee `json:"employees"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// EmployeeByUser returns the active roster entry for userID, or nil.
func (c Company) EmployeeByUser(userID string) *Employee {
	for i := range c.Employees {
		if c.Employees[i].UserID == userID && c.Employees[i].IsActive {
			return &c.Employees[i]
		}
	}
	return nil
}
