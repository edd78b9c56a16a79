package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// requirements lists what each environment needs beyond the common checks.
var requirements = map[Environment]struct {
	modelKey  bool
	noDevAuth bool
}{
	Development: {modelKey: true},
	Test:        {},
	CI:          {},
	Production:  {modelKey: true, noDevAuth: true},
}

// ValidateConfig checks if the configuration meets the requirements for its environment
func ValidateConfig(cfg *Config) error {
	reqs := requirements[cfg.Environment]
	var errs []ValidationError

	if cfg.ServerPort == "" {
		errs = append(errs, ValidationError{"SERVER_PORT", "is required"})
	}

	switch cfg.DBDriver {
	case "postgres":
		for field, value := range map[string]string{
			"DB_HOST":     cfg.DBHost,
			"DB_PORT":     cfg.DBPort,
			"DB_USER":     cfg.DBUser,
			"DB_NAME":     cfg.DBName,
			"DB_PASSWORD": cfg.DBPassword,
		} {
			if value == "" {
				errs = append(errs, ValidationError{field, "is required for postgres"})
			}
		}
	case "sqlite":
		if cfg.SQLitePath == "" {
			errs = append(errs, ValidationError{"SQLITE_PATH", "is required for sqlite"})
		}
	default:
		errs = append(errs, ValidationError{"DB_DRIVER", fmt.Sprintf("unsupported driver %q", cfg.DBDriver)})
	}

	switch cfg.AuthMode {
	case AuthModeJWT:
		if cfg.JWTSecret == "" {
			errs = append(errs, ValidationError{"JWT_SECRET", "is required when AUTH_MODE=jwt"})
		}
	case AuthModeDev:
		if reqs.noDevAuth {
			errs = append(errs, ValidationError{"AUTH_MODE", "dev identity is not allowed in production"})
		}
		if cfg.DevUserID == "" {
			errs = append(errs, ValidationError{"DEV_USER_ID", "is required when AUTH_MODE=dev"})
		}
	default:
		errs = append(errs, ValidationError{"AUTH_MODE", fmt.Sprintf("must be %q or %q", AuthModeJWT, AuthModeDev)})
	}

	if reqs.modelKey && cfg.OpenAIAPIKey == "" {
		errs = append(errs, ValidationError{"OPENAI_API_KEY", "is required"})
	}
	if cfg.ModelTimeout <= 0 {
		errs = append(errs, ValidationError{"MODEL_TIMEOUT", "must be positive"})
	}
	if (cfg.PhotoBucket != "" || cfg.RekognitionEnabled) && cfg.AWSRegion == "" {
		errs = append(errs, ValidationError{"AWS_REGION", "is required for the photo archive and image screening"})
	}

	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return fmt.Errorf("%s", strings.Join(msgs, "\n"))
}
