package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
)

type sample struct {
	Role     string `validate:"required,labrole"`
	Status   string `validate:"omitempty,labstatus"`
	Password string `validate:"required,labpassword"`
}

func newValidator(t *testing.T) *validator.Validate {
	t.Helper()
	v := validator.New()
	if err := Register(v); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return v
}

func TestCustomRules(t *testing.T) {
	v := newValidator(t)

	valid := sample{Role: "admin", Status: "approved", Password: "secret1"}
	if err := v.Struct(valid); err != nil {
		t.Fatalf("expected valid struct, got %v", err)
	}

	tests := []struct {
		name string
		in   sample
		tag  string
	}{
		{"unknown role", sample{Role: "root", Password: "secret1"}, TagRole},
		{"unknown status", sample{Role: "user", Status: "archived", Password: "secret1"}, TagExperimentStatus},
		{"short password", sample{Role: "user", Password: "abc"}, TagPassword},
		{"long password", sample{Role: "user", Password: strings.Repeat("x", 73)}, TagPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.in)
			var verrs validator.ValidationErrors
			if !errors.As(err, &verrs) || len(verrs) != 1 {
				t.Fatalf("expected exactly one validation error, got %v", err)
			}
			if verrs[0].Tag() != tt.tag {
				t.Fatalf("expected tag %s, got %s", tt.tag, verrs[0].Tag())
			}
		})
	}
}

func TestMessage(t *testing.T) {
	v := newValidator(t)
	err := v.Struct(sample{Role: "user", Status: "archived", Password: "secret1"})

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected validation errors, got %v", err)
	}
	if got := Message(verrs[0]); got != "Invalid status value" {
		t.Fatalf("unexpected message %q", got)
	}
}
