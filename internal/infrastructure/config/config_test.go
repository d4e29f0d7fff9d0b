package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "robot.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
robot:
  id: "potato-bot"
database:
  path: "/tmp/runs.db"
mission:
  auto_shutdown_seconds: 90
  start_signal: "light"
  start_sensor: "lamp"
hopper:
  max_retries: 3
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Robot.ID != "potato-bot" {
		t.Errorf("Robot.ID = %q, want %q", cfg.Robot.ID, "potato-bot")
	}
	if cfg.Database.Path != "/tmp/runs.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.GetAutoShutdown() != 90*time.Second {
		t.Errorf("GetAutoShutdown() = %v, want 90s", cfg.GetAutoShutdown())
	}
	if cfg.Mission.StartSensor != "lamp" {
		t.Errorf("Mission.StartSensor = %q", cfg.Mission.StartSensor)
	}
	if cfg.Hopper.MaxRetries != 3 {
		t.Errorf("Hopper.MaxRetries = %d, want 3", cfg.Hopper.MaxRetries)
	}
	// Untouched sections keep their defaults.
	if cfg.Hopper.HoldTime() != 300*time.Millisecond {
		t.Errorf("Hopper.HoldTime() = %v, want default 300ms", cfg.Hopper.HoldTime())
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/robot.yaml"); err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "invalid: [yaml: content")); err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeConfig(t, `
robot:
  id: ""
`)
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "robot.id is required") {
		t.Errorf("Load() error = %v, want robot.id validation failure", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"missing database", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"bad qos", func(c *Config) { c.MQTT.QoS = 3 }, "mqtt.qos"},
		{"bad port", func(c *Config) { c.MQTT.Enabled = true; c.MQTT.Broker.Port = 0 }, "mqtt.broker.port"},
		{"api port", func(c *Config) { c.API.Enabled = true; c.API.Port = 70000 }, "api.port"},
		{"websocket ping", func(c *Config) { c.API.Enabled = true; c.WebSocket.PingInterval = 0 }, "ping_interval"},
		{"websocket message size", func(c *Config) { c.API.Enabled = true; c.WebSocket.MaxMessageSize = 0 }, "max_message_size"},
		{"influx without url", func(c *Config) { c.InfluxDB.Enabled = true; c.InfluxDB.URL = "" }, "influxdb.url"},
		{"negative shutdown", func(c *Config) { c.Mission.AutoShutdownSeconds = -1 }, "auto_shutdown_seconds"},
		{"zero shutdown timeout", func(c *Config) { c.Mission.ShutdownTimeoutSeconds = 0 }, "shutdown_timeout_seconds"},
		{"unknown start signal", func(c *Config) { c.Mission.StartSignal = "button" }, "start_signal"},
		{"remote without mqtt", func(c *Config) { c.Mission.StartSignal = StartSignalRemote }, "requires mqtt.enabled"},
		{"light without sensor", func(c *Config) {
			c.Mission.StartSignal = StartSignalLight
			c.Mission.StartSensor = ""
		}, "start_sensor"},
		{"hopper percent", func(c *Config) { c.Hopper.UpPercent = -120 }, "hopper percents"},
		{"hopper interval", func(c *Config) { c.Hopper.PollIntervalMS = 0 }, "hopper intervals"},
		{"hopper retries", func(c *Config) { c.Hopper.MaxRetries = -1 }, "max_retries"},
		{"simulation tick", func(c *Config) { c.Simulation.TickMS = 0 }, "tick_ms"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()

			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Durations(t *testing.T) {
	cfg := defaultConfig()

	if got := cfg.GetAutoShutdown(); got != 118*time.Second {
		t.Errorf("GetAutoShutdown() = %v, want 118s", got)
	}
	if got := cfg.GetShutdownTimeout(); got != 5*time.Second {
		t.Errorf("GetShutdownTimeout() = %v, want 5s", got)
	}
	if got := cfg.GetSimulationTick(); got != 10*time.Millisecond {
		t.Errorf("GetSimulationTick() = %v, want 10ms", got)
	}
	if got := cfg.Hopper.MaxPhaseTime(); got != 2500*time.Millisecond {
		t.Errorf("MaxPhaseTime() = %v, want 2.5s", got)
	}
	if got := cfg.Hopper.ShakeInterval(); got != 100*time.Millisecond {
		t.Errorf("ShakeInterval() = %v, want 100ms", got)
	}
	if got := cfg.Hopper.PollInterval(); got != 5*time.Millisecond {
		t.Errorf("PollInterval() = %v, want 5ms", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("MISSIONCORE_ROBOT_ID", "env-bot")
	t.Setenv("MISSIONCORE_DATABASE_PATH", "/env/runs.db")
	t.Setenv("MISSIONCORE_MQTT_HOST", "broker.local")
	t.Setenv("MISSIONCORE_MQTT_USERNAME", "robot")
	t.Setenv("MISSIONCORE_MQTT_PASSWORD", "secret")
	t.Setenv("MISSIONCORE_INFLUXDB_TOKEN", "token")
	t.Setenv("MISSIONCORE_LOG_LEVEL", "debug")
	t.Setenv("MISSIONCORE_START_SIGNAL", "light")
	t.Setenv("MISSIONCORE_API_PORT", "9090")

	cfg := defaultConfig()
	applyEnvOverrides(cfg)

	if cfg.API.Port != 9090 {
		t.Errorf("api port = %d, want 9090", cfg.API.Port)
	}

	checks := map[string][2]string{
		"robot id":      {cfg.Robot.ID, "env-bot"},
		"database path": {cfg.Database.Path, "/env/runs.db"},
		"mqtt host":     {cfg.MQTT.Broker.Host, "broker.local"},
		"mqtt username": {cfg.MQTT.Auth.Username, "robot"},
		"mqtt password": {cfg.MQTT.Auth.Password, "secret"},
		"influx token":  {cfg.InfluxDB.Token, "token"},
		"log level":     {cfg.Logging.Level, "debug"},
		"start signal":  {cfg.Mission.StartSignal, "light"},
	}
	for name, c := range checks {
		if c[0] != c[1] {
			t.Errorf("%s = %q, want %q", name, c[0], c[1])
		}
	}
}

func TestDefault(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if cfg.Mission.StartSignal != StartSignalNone {
		t.Errorf("StartSignal = %q, want none", cfg.Mission.StartSignal)
	}
	if cfg.MQTT.Enabled || cfg.InfluxDB.Enabled {
		t.Error("MQTT and InfluxDB should be disabled by default")
	}
}
