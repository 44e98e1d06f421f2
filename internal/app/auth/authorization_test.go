package auth

import (
	"testing"

	"github.com/quantumlab/labtrack/internal/app/models"
)

func TestDefaultPolicy(t *testing.T) {
	p := NewDefaultPolicy()

	tests := []struct {
		name     string
		role     models.Role
		required []Capability
		allowed  bool
	}{
		{"admin manages experiments", models.RoleAdmin, []Capability{CapAdminAccess, CapExperimentsManage}, true},
		{"admin reads logs", models.RoleAdmin, []Capability{CapAdminAccess, CapLogsRead}, true},
		{"user cannot reach admin", models.RoleUser, []Capability{CapAdminAccess, CapUsersManage}, false},
		{"user owns experiments", models.RoleUser, []Capability{CapExperimentsOwn}, true},
		{"admin has no own-experiment inbox", models.RoleAdmin, []Capability{CapExperimentsOwn}, false},
		{"both use files", models.RoleUser, []Capability{CapExperimentFiles}, true},
		{"both message", models.RoleAdmin, []Capability{CapMessagesUse}, true},
		{"unknown role", models.Role("guest"), []Capability{CapMessagesUse}, false},
		{"empty requirement", models.RoleUser, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := p.Evaluate(tt.role, tt.required...)
			if d.Allowed != tt.allowed {
				t.Fatalf("Evaluate(%s, %s) = %+v, want allowed=%v", tt.role, String(tt.required), d, tt.allowed)
			}
			if !d.Allowed && d.Reason == "" {
				t.Fatal("denied decisions must carry a reason")
			}
		})
	}
}

func TestDecisionReportsMissingCapability(t *testing.T) {
	d := NewDefaultPolicy().Evaluate(models.RoleUser, CapExperimentFiles, CapStatsRead)
	if d.Allowed || d.Missing != CapStatsRead {
		t.Fatalf("expected missing %s, got %+v", CapStatsRead, d)
	}
}
