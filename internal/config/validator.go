package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator wraps go-playground/validator with struct-tag validation,
// adding the one field go-playground can't express on its own: repo_root
// must be an absolute path.
type Validator struct {
	validate *validator.Validate
}

// NewValidator builds a Validator with struct-tag validation wired up.
func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// ValidationError aggregates every validation failure for a single config
// so a caller sees all problems at once instead of the first one
// validator.v10 happens to report.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("config validation error: %s", e.Errors[0])
	}
	return fmt.Sprintf("config validation errors:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Validate checks cfg against its struct tags plus the one rule struct
// tags cannot express (repo_root absoluteness), returning a
// *ValidationError — a spec §7 category-1 "configuration error", fatal to
// the invocation.
func (v *Validator) Validate(cfg *Config) error {
	var problems []string

	if err := v.validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				problems = append(problems, describeFieldError(fe))
			}
		} else {
			problems = append(problems, err.Error())
		}
	}

	if cfg.RepoRoot != "" && !isAbsolutePath(cfg.RepoRoot) {
		problems = append(problems, fmt.Sprintf("repo_root %q must be an absolute path", cfg.RepoRoot))
	}

	if len(problems) > 0 {
		return &ValidationError{Errors: problems}
	}
	return nil
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Namespace())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Namespace(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must have at least %s element(s)", fe.Namespace(), fe.Param())
	default:
		return fmt.Sprintf("%s failed validation %q", fe.Namespace(), fe.Tag())
	}
}

func isAbsolutePath(p string) bool {
	return strings.HasPrefix(p, "/") || (len(p) > 2 && p[1] == ':' && (p[2] == '\\' || p[2] == '/'))
}

// ValidateAndLoad loads the config from dir and validates it in one call,
// the convenience entry point most callers (the CLI included) should use
// instead of sequencing Load and Validate themselves.
func ValidateAndLoad(dir string) (*Config, error) {
	cfg, err := Load(dir)
	if err != nil {
		return nil, err
	}
	if cfg.RepoRoot == "" {
		cfg.RepoRoot = dir
	}
	v := NewValidator()
	if err := v.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
