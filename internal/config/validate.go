package config

import (
	"fmt"
	"strings"

	"github.com/KilimcininKorOglu/obacore/internal/dn"
	"github.com/KilimcininKorOglu/obacore/internal/logging"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateConfig validates the configuration and returns a list of validation errors.
// An empty slice indicates the configuration is valid.
func ValidateConfig(config *Config) []error {
	var errs []error

	errs = append(errs, validateDirectoryConfig(&config.Directory)...)
	errs = append(errs, validatePersistentSearchConfig(&config.PersistentSearch)...)
	errs = append(errs, validateLogConfig(&config.Logging)...)

	return errs
}

func validateDirectoryConfig(config *DirectoryConfig) []error {
	var errs []error

	// alternate DN key -> index of the root that claimed it
	claimed := make(map[string]int)
	for i, root := range config.RootDNs {
		field := fmt.Sprintf("directory.rootDNs[%d]", i)
		if root.DN == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".dn",
				Message: "root DN is required",
			})
		} else if _, err := parseDN(root.DN); err != nil {
			errs = append(errs, ValidationError{
				Field:   field + ".dn",
				Message: err.Error(),
			})
		}

		for j, alt := range root.AlternateBindDNs {
			altField := fmt.Sprintf("%s.alternateBindDNs[%d]", field, j)
			d, err := parseDN(alt)
			if err != nil {
				errs = append(errs, ValidationError{
					Field:   altField,
					Message: err.Error(),
				})
				continue
			}
			if d.IsRoot() {
				errs = append(errs, ValidationError{
					Field:   altField,
					Message: "alternate bind DN must not be empty",
				})
				continue
			}
			if prev, ok := claimed[d.Key()]; ok && prev != i {
				errs = append(errs, ValidationError{
					Field:   altField,
					Message: fmt.Sprintf("already an alternate bind DN of directory.rootDNs[%d]", prev),
				})
				continue
			}
			claimed[d.Key()] = i
		}
	}

	return errs
}

func validatePersistentSearchConfig(config *PersistentSearchConfig) []error {
	var errs []error

	if config.MaxPersistentSearches < -1 {
		errs = append(errs, ValidationError{
			Field:   "persistentSearch.maxPersistentSearches",
			Message: "must be -1 (unlimited) or non-negative",
		})
	}

	if config.CancelWait <= 0 {
		errs = append(errs, ValidationError{
			Field:   "persistentSearch.cancelWait",
			Message: "must be positive",
		})
	}

	return errs
}

func validateLogConfig(config *logging.Config) []error {
	var errs []error

	switch strings.ToLower(config.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level %q, must be one of: debug, info, warn, error", config.Level),
		})
	}

	switch strings.ToLower(config.Format) {
	case "json", "text":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format %q, must be one of: json, text", config.Format),
		})
	}

	if config.Output == "" {
		errs = append(errs, ValidationError{
			Field:   "logging.output",
			Message: "log output is required",
		})
	}

	return errs
}

func parseDN(s string) (dn.DN, error) {
	return dn.Parse(s)
}
