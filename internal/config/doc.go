// Package config provides configuration parsing and management for the
// directory core.
//
// # Configuration Structure
//
//	type Config struct {
//	    Directory        DirectoryConfig        // root DNs and their alternate bind DNs
//	    Operations       OperationsConfig       // response suppression
//	    PersistentSearch PersistentSearchConfig // admission control and cancel wait
//	    Logging          logging.Config         // logger construction
//	}
//
// # Loading Configuration
//
//	cfg, err := config.LoadConfig("/etc/obacore/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if errs := config.ValidateConfig(cfg); len(errs) > 0 {
//	    log.Fatal(errs[0])
//	}
//
// Settings missing from the file keep the values of DefaultConfig.
//
// # Environment Variables
//
// ${VAR} and ${VAR:-default} references in the file are replaced with the
// value of the environment variable before the YAML is decoded:
//
//	logging:
//	  level: ${OBACORE_LOG_LEVEL:-info}
//
// # Hot Reload
//
// Manager holds the live configuration. Readers call Get on every use, so
// Update and Reload take effect for the next operation. OnUpdate callbacks
// run after a new configuration is installed, and Watch polls the file and
// reloads it when it changes.
package config
