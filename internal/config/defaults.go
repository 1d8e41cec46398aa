package config

import (
	"time"

	"github.com/KilimcininKorOglu/obacore/internal/logging"
)

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Directory: DirectoryConfig{
			RootDNs: nil,
		},
		Operations: OperationsConfig{
			NotifyAbandonedOperations: false,
		},
		PersistentSearch: PersistentSearchConfig{
			MaxPersistentSearches: -1,
			CancelWait:            5 * time.Second,
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}
