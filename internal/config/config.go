package config

import (
	"time"

	"github.com/KilimcininKorOglu/obacore/internal/logging"
)

// Config holds all configuration for the directory core.
type Config struct {
	Directory        DirectoryConfig        `yaml:"directory"`
	Operations       OperationsConfig       `yaml:"operations"`
	PersistentSearch PersistentSearchConfig `yaml:"persistentSearch"`
	Logging          logging.Config         `yaml:"logging"`
}

// DirectoryConfig holds directory-wide naming settings.
type DirectoryConfig struct {
	RootDNs []RootDNConfig `yaml:"rootDNs"`
}

// RootDNConfig is a root user. A bind as any of AlternateBindDNs is
// processed as a bind as DN.
type RootDNConfig struct {
	DN               string   `yaml:"dn"`
	AlternateBindDNs []string `yaml:"alternateBindDNs"`
}

// OperationsConfig holds settings shared by every operation type.
type OperationsConfig struct {
	// NotifyAbandonedOperations sends a result to canceled operations even
	// when the client did not ask for one.
	NotifyAbandonedOperations bool `yaml:"notifyAbandonedOperations"`
}

// PersistentSearchConfig holds persistent search settings.
type PersistentSearchConfig struct {
	// MaxPersistentSearches is the number of concurrently active persistent
	// searches allowed. -1 means unlimited.
	MaxPersistentSearches int `yaml:"maxPersistentSearches"`
	// CancelWait is how long a blocking cancel waits for the operation to
	// reach a checkpoint.
	CancelWait time.Duration `yaml:"cancelWait"`
}

// AlternateBindDNs maps the normalized form of every alternate bind DN to
// the root DN it stands for. Entries that do not parse are skipped;
// ValidateConfig reports them.
func (c *Config) AlternateBindDNs() map[string]string {
	out := make(map[string]string)
	for _, root := range c.Directory.RootDNs {
		for _, alt := range root.AlternateBindDNs {
			d, err := parseDN(alt)
			if err != nil {
				continue
			}
			out[d.Key()] = root.DN
		}
	}
	return out
}

func (c *Config) clone() *Config {
	cp := *c
	cp.Directory.RootDNs = make([]RootDNConfig, len(c.Directory.RootDNs))
	for i, root := range c.Directory.RootDNs {
		cp.Directory.RootDNs[i] = RootDNConfig{
			DN:               root.DN,
			AlternateBindDNs: append([]string(nil), root.AlternateBindDNs...),
		}
	}
	return &cp
}
