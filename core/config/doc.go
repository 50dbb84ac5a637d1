// Package config provides configuration management for overlay-sync.
//
// It utilizes Viper for loading configuration from environment variables, an optional
// .env file and an optional config.yaml. Defaults come from the `default` struct tags of
// each section, bound by reflection so every key is also reachable from the environment.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Server: HTTP port, API key and shutdown budget
//   - Database: MySQL or SQLite connection details
//   - Storage: S3/MinIO credentials and bucket settings
//   - Log: Logging level and format
//   - Mirror: object prefix, desired-state source and pass budgets
//
// Environment keys are the section and field joined by an underscore, e.g. MIRROR_SOURCE.
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Port)
package config
