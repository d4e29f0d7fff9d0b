// Package config handles loading and validating Mission Core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Credentials (MQTT password, InfluxDB token) should come from environment
// variables rather than the file checked into the robot's repository.
//
// Usage:
//
//	cfg, err := config.Load("configs/robot.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Robot.Name, cfg.GetAutoShutdown())
package config
