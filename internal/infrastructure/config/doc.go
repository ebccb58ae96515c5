// Package config loads and validates Gray Logic Dispatch configuration.
//
// Values are layered: built-in defaults, then the YAML file, then
// GRAYLOGIC_* environment variables. Validate runs last and only checks
// the sections that are enabled, so a bare demo run needs no file at all.
//
// Secrets (MQTT password, InfluxDB token, JWT secret) should come from
// the environment rather than the file.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.Site.Name)
package config
