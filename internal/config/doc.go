// Package config loads and persists the imd CLI configuration.
//
// Configuration is layered: defaults, then the YAML config file at
// ~/.config/imd/config.yaml, then IMD_-prefixed environment variables.
// Later layers win.
//
// # Usage
//
//	path, err := config.DefaultPath()
//	if err != nil {
//		return err
//	}
//	cfg, err := config.LoadFromFile(path)
//	if err != nil {
//		return err
//	}
//	if err := cfg.LoadFromEnv(); err != nil {
//		return err
//	}
//	if err := cfg.Validate(); err != nil {
//		return err
//	}
package config
