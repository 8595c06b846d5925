package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct constraints and the cross references inside the
// environments table.
func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return &ConfigurationError{
				Field:     first.Namespace(),
				ErrorType: "validation",
				Message:   fmt.Sprintf("failed %q constraint (value %v)", first.Tag(), first.Value()),
			}
		}
		return &ConfigurationError{ErrorType: "validation", Message: err.Error()}
	}

	return validateEnvironments(cfg.Environments)
}

func validateEnvironments(envs Environments) error {
	if len(envs.Apps) == 0 {
		return &ConfigurationError{
			Field:       "environments",
			ErrorType:   "validation",
			Message:     "no applications configured",
			Suggestions: []string{"add at least one application with a level -> URL mapping"},
		}
	}

	seen := make(map[string]bool, len(envs.Apps))
	var names []string
	for _, app := range envs.Apps {
		if seen[app.Name] {
			return &ConfigurationError{
				Field:     "environments." + app.Name,
				ErrorType: "validation",
				Message:   "application defined more than once",
			}
		}
		seen[app.Name] = true
		names = append(names, app.Name)

		if app.DefaultLevel != "" {
			if _, ok := app.Level(app.DefaultLevel); !ok {
				return &ConfigurationError{
					Field:     fmt.Sprintf("environments.%s.default", app.Name),
					ErrorType: "validation",
					Message:   fmt.Sprintf("default level %q is not defined", app.DefaultLevel),
				}
			}
		}
	}

	if envs.Default != "" && !seen[envs.Default] {
		return &ConfigurationError{
			Field:       "environments.default",
			ErrorType:   "validation",
			Message:     fmt.Sprintf("default application %q is not defined", envs.Default),
			Suggestions: []string{"set it to one of: " + strings.Join(names, ", ")},
		}
	}
	return nil
}
