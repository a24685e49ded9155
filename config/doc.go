// Package config provides application configuration management.
//
// The config package handles loading and validation of the orchestrator's
// configuration from YAML files. It covers the HTTP server, admission and
// job-timeout settings, the per-container sandbox ceilings, the per-language
// runner images, and the backend notifier.
//
// Usage:
//
//	cfg, err := config.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Max concurrent jobs: %d\n", cfg.Orchestrator.MaxJobs)
package config
