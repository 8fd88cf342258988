package provisioning

import (
	"fmt"
	"strings"

	"github.com/imamik/hadoop-ec2/internal/config"
)

// ValidationError represents a configuration validation error or warning.
type ValidationError struct {
	Field    string // Configuration field that failed validation
	Message  string // Human-readable error message
	Severity string // "error" or "warning"
}

// Error implements the error interface.
func (ve ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", ve.Severity, ve.Field, ve.Message)
}

// IsError returns true if this is an error (not a warning).
func (ve ValidationError) IsError() bool {
	return ve.Severity == "error"
}

// ValidationPhase checks launch preconditions before any provider call.
type ValidationPhase struct {
	catalog *config.Catalog
}

// NewValidationPhase creates a validation phase. A nil catalog skips the
// instance type compatibility check.
func NewValidationPhase(catalog *config.Catalog) *ValidationPhase {
	return &ValidationPhase{catalog: catalog}
}

// Name implements the Phase interface.
func (vp *ValidationPhase) Name() string {
	return "validation"
}

// Provision implements the Phase interface. Errors are returned as a
// PreconditionError.
func (vp *ValidationPhase) Provision(ctx *Context) error {
	ctx.Observer.Printf("[Validation] Running pre-flight validation...")

	var errs, warnings []ValidationError
	for _, ve := range vp.validate(ctx.Config) {
		if ve.IsError() {
			errs = append(errs, ve)
		} else {
			warnings = append(warnings, ve)
		}
	}

	for _, warning := range warnings {
		LogWarning(ctx.Observer, "Validation", warning.Message)
	}

	if len(errs) > 0 {
		var errMsgs []string
		for _, e := range errs {
			errMsgs = append(errMsgs, e.Message)
		}
		return Preconditionf("%s", strings.Join(errMsgs, "\n  "))
	}

	ctx.Observer.Printf("[Validation] Validation passed")
	return nil
}

func (vp *ValidationPhase) validate(cfg *config.Config) []ValidationError {
	var errs []ValidationError

	if cfg.ClusterName == "" {
		errs = append(errs, ValidationError{
			Field:    "ClusterName",
			Message:  "cluster name is required",
			Severity: "error",
		})
	}

	if err := cfg.ValidateLaunch(); err != nil {
		errs = append(errs, ValidationError{
			Field:    "Launch",
			Message:  err.Error(),
			Severity: "error",
		})
	}

	if vp.catalog != nil {
		warnings, err := vp.catalog.CheckCompatible(cfg.MainType(), cfg.InstanceType)
		for _, w := range warnings {
			errs = append(errs, ValidationError{
				Field:    "InstanceType",
				Message:  w,
				Severity: "warning",
			})
		}
		if err != nil {
			errs = append(errs, ValidationError{
				Field:    "InstanceType",
				Message:  err.Error(),
				Severity: "error",
			})
		}
	}

	return errs
}
