package auth

import (
	"fmt"
	"strings"

	"github.com/quantumlab/labtrack/internal/app/models"
)

// Capability names one thing a caller may do
type Capability string

// Capabilities checked by the router
const (
	CapAdminAccess       Capability = "admin:access"
	CapUsersManage       Capability = "users:manage"
	CapExperimentsManage Capability = "experiments:manage"
	CapLogsRead          Capability = "logs:read"
	CapStatsRead         Capability = "stats:read"
	CapExperimentsOwn    Capability = "experiments:own"
	CapExperimentFiles   Capability = "experiments:files"
	CapMessagesUse       Capability = "messages:use"
	CapNotificationsRead Capability = "notifications:read"
	CapProfileEdit       Capability = "profile:edit"
)

// common to every signed-in role
var baseCapabilities = []Capability{
	CapExperimentFiles,
	CapMessagesUse,
	CapNotificationsRead,
	CapProfileEdit,
}

// DefaultGrants maps each role to the capabilities it holds
func DefaultGrants() map[models.Role][]Capability {
	admin := append([]Capability{
		CapAdminAccess,
		CapUsersManage,
		CapExperimentsManage,
		CapLogsRead,
		CapStatsRead,
	}, baseCapabilities...)

	user := append([]Capability{CapExperimentsOwn}, baseCapabilities...)

	return map[models.Role][]Capability{
		models.RoleAdmin: admin,
		models.RoleUser:  user,
	}
}

// Decision is the outcome of a policy check
type Decision struct {
	Allowed bool
	// Missing is the first required capability the role lacks
	Missing Capability
	Reason  string
}

// Policy evaluates required capability sets against a caller's role
type Policy struct {
	grants map[models.Role]map[Capability]struct{}
}

// NewPolicy builds a policy from role grants
func NewPolicy(grants map[models.Role][]Capability) *Policy {
	p := &Policy{grants: make(map[models.Role]map[Capability]struct{}, len(grants))}
	for role, caps := range grants {
		set := make(map[Capability]struct{}, len(caps))
		for _, c := range caps {
			set[c] = struct{}{}
		}
		p.grants[role] = set
	}
	return p
}

// NewDefaultPolicy builds the policy used by the API
func NewDefaultPolicy() *Policy {
	return NewPolicy(DefaultGrants())
}

// Has reports whether role holds capability
func (p *Policy) Has(role models.Role, capability Capability) bool {
	_, ok := p.grants[role][capability]
	return ok
}

// Evaluate checks that role holds every required capability
func (p *Policy) Evaluate(role models.Role, required ...Capability) Decision {
	if _, known := p.grants[role]; !known {
		return Decision{Reason: fmt.Sprintf("unknown role %q", role)}
	}
	for _, c := range required {
		if !p.Has(role, c) {
			return Decision{Missing: c, Reason: fmt.Sprintf("role %s lacks %s", role, c)}
		}
	}
	return Decision{Allowed: true}
}

// String renders a capability set for logs
func String(caps []Capability) string {
	parts := make([]string, len(caps))
	for i, c := range caps {
		parts[i] = string(c)
	}
	return strings.Join(parts, ",")
}
