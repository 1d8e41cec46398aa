package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Empty(t, config.Directory.RootDNs)
	assert.False(t, config.Operations.NotifyAbandonedOperations)
	assert.Equal(t, -1, config.PersistentSearch.MaxPersistentSearches)
	assert.Equal(t, 5*time.Second, config.PersistentSearch.CancelWait)
	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, "json", config.Logging.Format)
	assert.Equal(t, "stdout", config.Logging.Output)
	assert.Empty(t, ValidateConfig(config))
}

func TestParseConfig(t *testing.T) {
	data := []byte(`
directory:
  rootDNs:
    - dn: cn=Directory Manager
      alternateBindDNs:
        - cn=admin
        - cn=root,dc=example,dc=com
operations:
  notifyAbandonedOperations: true
persistentSearch:
  maxPersistentSearches: 10
  cancelWait: 250ms
logging:
  level: debug
  format: text
`)

	config, err := ParseConfig(data)
	require.NoError(t, err)

	require.Len(t, config.Directory.RootDNs, 1)
	assert.Equal(t, "cn=Directory Manager", config.Directory.RootDNs[0].DN)
	assert.Equal(t, []string{"cn=admin", "cn=root,dc=example,dc=com"}, config.Directory.RootDNs[0].AlternateBindDNs)
	assert.True(t, config.Operations.NotifyAbandonedOperations)
	assert.Equal(t, 10, config.PersistentSearch.MaxPersistentSearches)
	assert.Equal(t, 250*time.Millisecond, config.PersistentSearch.CancelWait)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, "text", config.Logging.Format)
	assert.Equal(t, "stdout", config.Logging.Output, "unset keys keep their defaults")
}

func TestParseConfigEmpty(t *testing.T) {
	config, err := ParseConfig([]byte("  \n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), config)
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed", "logging: [level"},
		{"unknown key", "logging:\n  colour: red\n"},
		{"wrong type", "persistentSearch:\n  maxPersistentSearches: lots\n"},
		{"bad duration", "persistentSearch:\n  cancelWait: soon\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.data))
			assert.ErrorIs(t, err, ErrInvalidYAML)
		})
	}
}

func TestEnvironmentSubstitution(t *testing.T) {
	t.Setenv("OBACORE_TEST_LEVEL", "warn")

	config, err := ParseConfig([]byte(`
logging:
  level: ${OBACORE_TEST_LEVEL}
  format: ${OBACORE_TEST_UNSET_FORMAT:-text}
`))
	require.NoError(t, err)
	assert.Equal(t, "warn", config.Logging.Level)
	assert.Equal(t, "text", config.Logging.Format)
}

func TestLoadConfig(t *testing.T) {
	t.Run("file", func(t *testing.T) {
		path := writeConfig(t, "operations:\n  notifyAbandonedOperations: true\n")
		config, err := LoadConfig(path)
		require.NoError(t, err)
		assert.True(t, config.Operations.NotifyAbandonedOperations)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.ErrorIs(t, err, ErrFileNotFound)
	})
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		fields []string
	}{
		{"valid", func(*Config) {}, nil},
		{
			"root DN required",
			func(c *Config) { c.Directory.RootDNs = []RootDNConfig{{}} },
			[]string{"directory.rootDNs[0].dn"},
		},
		{
			"bad root DN",
			func(c *Config) { c.Directory.RootDNs = []RootDNConfig{{DN: "not a dn"}} },
			[]string{"directory.rootDNs[0].dn"},
		},
		{
			"bad alternate DN",
			func(c *Config) {
				c.Directory.RootDNs = []RootDNConfig{{DN: "cn=root", AlternateBindDNs: []string{"cn=ok", "broken"}}}
			},
			[]string{"directory.rootDNs[0].alternateBindDNs[1]"},
		},
		{
			"alternate DN claimed twice",
			func(c *Config) {
				c.Directory.RootDNs = []RootDNConfig{
					{DN: "cn=one", AlternateBindDNs: []string{"cn=admin"}},
					{DN: "cn=two", AlternateBindDNs: []string{"CN=Admin"}},
				}
			},
			[]string{"directory.rootDNs[1].alternateBindDNs[0]"},
		},
		{
			"psearch limit",
			func(c *Config) { c.PersistentSearch.MaxPersistentSearches = -2 },
			[]string{"persistentSearch.maxPersistentSearches"},
		},
		{
			"cancel wait",
			func(c *Config) { c.PersistentSearch.CancelWait = 0 },
			[]string{"persistentSearch.cancelWait"},
		},
		{
			"logging",
			func(c *Config) { c.Logging.Level, c.Logging.Format, c.Logging.Output = "loud", "xml", "" },
			[]string{"logging.level", "logging.format", "logging.output"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modify(config)

			var fields []string
			for _, err := range ValidateConfig(config) {
				var ve ValidationError
				require.True(t, errors.As(err, &ve))
				fields = append(fields, ve.Field)
			}
			assert.Equal(t, tt.fields, fields)
		})
	}
}

func TestAlternateBindDNs(t *testing.T) {
	config := DefaultConfig()
	config.Directory.RootDNs = []RootDNConfig{
		{DN: "cn=Directory Manager", AlternateBindDNs: []string{"CN=Admin", "bad"}},
	}

	got := config.AlternateBindDNs()
	assert.Len(t, got, 1)
	assert.Equal(t, "cn=Directory Manager", got[parseKey(t, "cn=admin")])
}

func TestManagerUpdate(t *testing.T) {
	m := NewManager(nil, WithLogger(zaptest.NewLogger(t)))

	var calls []bool
	m.OnUpdate(func(oldCfg, newCfg *Config) {
		calls = append(calls, oldCfg.Operations.NotifyAbandonedOperations != newCfg.Operations.NotifyAbandonedOperations)
	})

	next := DefaultConfig()
	next.Operations.NotifyAbandonedOperations = true
	require.NoError(t, m.Update(next))
	assert.True(t, m.Get().Operations.NotifyAbandonedOperations)
	assert.Equal(t, []bool{true}, calls)

	next.Operations.NotifyAbandonedOperations = false
	assert.True(t, m.Get().Operations.NotifyAbandonedOperations, "the manager keeps its own copy")

	bad := DefaultConfig()
	bad.PersistentSearch.CancelWait = -time.Second
	err := m.Update(bad)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Equal(t, 5*time.Second, m.Get().PersistentSearch.CancelWait)
	assert.Len(t, calls, 1)
}

func TestManagerReload(t *testing.T) {
	path := writeConfig(t, "persistentSearch:\n  maxPersistentSearches: 1\n")
	m, err := LoadManager(path)
	require.NoError(t, err)
	assert.Equal(t, path, m.ConfigFile())
	assert.Equal(t, 1, m.Get().PersistentSearch.MaxPersistentSearches)

	require.NoError(t, os.WriteFile(path, []byte("persistentSearch:\n  maxPersistentSearches: 2\n"), 0o644))
	require.NoError(t, m.Reload())
	assert.Equal(t, 2, m.Get().PersistentSearch.MaxPersistentSearches)

	require.NoError(t, os.WriteFile(path, []byte("persistentSearch:\n  maxPersistentSearches: -5\n"), 0o644))
	assert.ErrorIs(t, m.Reload(), ErrInvalidConfig)
	assert.Equal(t, 2, m.Get().PersistentSearch.MaxPersistentSearches)

	assert.ErrorIs(t, NewManager(nil).Reload(), ErrNoConfigFile)
}

func TestLoadManagerInvalid(t *testing.T) {
	path := writeConfig(t, "logging:\n  format: xml\n")
	_, err := LoadManager(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestManagerWatch(t *testing.T) {
	path := writeConfig(t, "persistentSearch:\n  maxPersistentSearches: 1\n")
	mock := clock.NewMock()
	m, err := LoadManager(path, WithClock(mock), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Watch(ctx, time.Second) }()

	require.NoError(t, os.WriteFile(path, []byte("persistentSearch:\n  maxPersistentSearches: 100\n"), 0o644))
	require.Eventually(t, func() bool {
		mock.Add(time.Second)
		return m.Get().PersistentSearch.MaxPersistentSearches == 100
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestManagerWatchSeesEditsMadeBeforeStart(t *testing.T) {
	path := writeConfig(t, "persistentSearch:\n  maxPersistentSearches: 1\n")
	mock := clock.NewMock()
	m, err := LoadManager(path, WithClock(mock), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	// Written after the load and before Watch runs.
	require.NoError(t, os.WriteFile(path, []byte("persistentSearch:\n  maxPersistentSearches: 250\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Watch(ctx, time.Second) }()

	require.Eventually(t, func() bool {
		mock.Add(time.Second)
		return m.Get().PersistentSearch.MaxPersistentSearches == 250
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestManagerWatchUnchangedFileIsNotReloaded(t *testing.T) {
	path := writeConfig(t, "persistentSearch:\n  maxPersistentSearches: 1\n")
	mock := clock.NewMock()
	m, err := LoadManager(path, WithClock(mock))
	require.NoError(t, err)

	var reloads atomic.Int32
	m.OnUpdate(func(_, _ *Config) { reloads.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Watch(ctx, time.Second) }()

	for i := 0; i < 5; i++ {
		mock.Add(time.Second)
	}
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Zero(t, reloads.Load())
}

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func parseKey(t *testing.T, s string) string {
	t.Helper()
	d, err := parseDN(s)
	require.NoError(t, err)
	return d.Key()
}
