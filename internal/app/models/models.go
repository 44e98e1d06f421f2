package models

// Role is the coarse permission class of a user
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// UserStatus gates login
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

// Valid reports whether s is a known user status
func (s UserStatus) Valid() bool {
	return s == UserStatusActive || s == UserStatusInactive
}

// ExperimentStatus is the lifecycle state of an experiment
type ExperimentStatus string

const (
	StatusPending  ExperimentStatus = "pending"
	StatusActive   ExperimentStatus = "active"
	StatusDone     ExperimentStatus = "done"
	StatusApproved ExperimentStatus = "approved"
)

// ExperimentStatuses lists every lifecycle state in order
var ExperimentStatuses = []ExperimentStatus{StatusPending, StatusActive, StatusDone, StatusApproved}

// Valid reports whether s is one of the four lifecycle states
func (s ExperimentStatus) Valid() bool {
	for _, known := range ExperimentStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Severity of an audit log entry
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Valid reports whether s is a known severity
func (s Severity) Valid() bool {
	return s == SeverityInfo || s == SeverityWarning || s == SeverityError
}
