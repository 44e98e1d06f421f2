package validation

import (
	"fmt"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// Validation limits
var (
	PasswordMinLength = 6
	PasswordMaxLength = 72 // bcrypt ignores anything past 72 bytes
)

// Allowed values for enum-like fields
var (
	Roles              = []string{"admin", "user"}
	UserStatuses       = []string{"active", "inactive"}
	ExperimentStatuses = []string{"pending", "active", "done", "approved"}
	Severities         = []string{"info", "warning", "error"}
)

// Custom tag names
const (
	TagRole             = "labrole"
	TagUserStatus       = "labuserstatus"
	TagExperimentStatus = "labstatus"
	TagSeverity         = "labseverity"
	TagPassword         = "labpassword"
)

// Register installs the custom rules on v
func Register(v *validator.Validate) error {
	rules := map[string]validator.Func{
		TagRole:             oneOf(Roles),
		TagUserStatus:       oneOf(UserStatuses),
		TagExperimentStatus: oneOf(ExperimentStatuses),
		TagSeverity:         oneOf(Severities),
		TagPassword:         password,
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("register %s: %w", tag, err)
		}
	}
	return nil
}

// Message turns a failed field into a human readable sentence
func Message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email address"
	case "min":
		return fe.Field() + " must be at least " + fe.Param()
	case "max":
		return fe.Field() + " must be at most " + fe.Param()
	case TagRole:
		return "role must be admin or user"
	case TagUserStatus:
		return "status must be active or inactive"
	case TagExperimentStatus:
		return "Invalid status value"
	case TagSeverity:
		return "severity must be info, warning or error"
	case TagPassword:
		return fmt.Sprintf("password must be between %d and %d characters", PasswordMinLength, PasswordMaxLength)
	default:
		return fe.Field() + " validation failed: " + fe.Tag()
	}
}

func oneOf(allowed []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		for _, a := range allowed {
			if value == a {
				return true
			}
		}
		return false
	}
}

func password(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return utf8.RuneCountInString(value) >= PasswordMinLength && len(value) <= PasswordMaxLength
}
