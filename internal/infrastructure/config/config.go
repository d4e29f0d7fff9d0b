package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Start signals accepted in mission.start_signal.
const (
	StartSignalNone   = "none"
	StartSignalLight  = "light"
	StartSignalRemote = "remote"
)

// Config is the root configuration structure for Mission Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Robot      RobotConfig      `yaml:"robot"`
	Database   DatabaseConfig   `yaml:"database"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	API        APIConfig        `yaml:"api"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	Logging    LoggingConfig    `yaml:"logging"`
	Mission    MissionConfig    `yaml:"mission"`
	Hopper     HopperConfig     `yaml:"hopper"`
	Simulation SimulationConfig `yaml:"simulation"`
}

// RobotConfig identifies the robot in logs, topics and run history.
type RobotConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite run-history settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains the pit-side HTTP API settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains live event stream settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"` // seconds
	PongTimeout    int `yaml:"pong_timeout"`  // seconds
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"` // seconds
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// MissionConfig controls the match lifecycle.
type MissionConfig struct {
	// AutoShutdownSeconds ends the main missions this long after the start
	// signal. Zero disables the limit.
	AutoShutdownSeconds float64 `yaml:"auto_shutdown_seconds"`

	// ShutdownTimeoutSeconds bounds the shutdown mission.
	ShutdownTimeoutSeconds float64 `yaml:"shutdown_timeout_seconds"`

	// StartSignal is "none", "light" or "remote".
	StartSignal string `yaml:"start_signal"`

	// StartSensor names the light sensor watched when StartSignal is "light".
	StartSensor string `yaml:"start_sensor"`

	// HistoryLimit is how many past runs are kept per mission. Zero keeps all.
	HistoryLimit int `yaml:"history_limit"`
}

// HopperConfig tunes the hopper shake phase machine.
type HopperConfig struct {
	UpPercent       float64 `yaml:"up_percent"`
	DownPercent     float64 `yaml:"down_percent"`
	ShakeIntervalMS int     `yaml:"shake_interval_ms"`
	HoldTimeMS      int     `yaml:"hold_time_ms"`
	PollIntervalMS  int     `yaml:"poll_interval_ms"`
	MaxPhaseTimeMS  int     `yaml:"max_phase_time_ms"`
	MaxRetries      int     `yaml:"max_retries"`
}

// SimulationConfig tunes the simulated device used for dry runs.
type SimulationConfig struct {
	TickMS int `yaml:"tick_ms"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: MISSIONCORE_SECTION_KEY
// For example: MISSIONCORE_DATABASE_PATH, MISSIONCORE_MQTT_HOST
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration with environment overrides
// applied. It is used when no config file is given.
func Default() (*Config, error) {
	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Robot: RobotConfig{
			ID:   "robot-01",
			Name: "Mission Core",
		},
		Database: DatabaseConfig{
			Path:        "./data/missioncore.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "missioncore",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     30,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			URL:           "http://localhost:8086",
			Bucket:        "missioncore",
			BatchSize:     100,
			FlushInterval: 1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Mission: MissionConfig{
			AutoShutdownSeconds:    118,
			ShutdownTimeoutSeconds: 5,
			StartSignal:            StartSignalNone,
			StartSensor:            "start_light",
			HistoryLimit:           500,
		},
		Hopper: HopperConfig{
			UpPercent:       -60,
			DownPercent:     60,
			ShakeIntervalMS: 100,
			HoldTimeMS:      300,
			PollIntervalMS:  5,
			MaxPhaseTimeMS:  2500,
			MaxRetries:      1,
		},
		Simulation: SimulationConfig{
			TickMS: 10,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MISSIONCORE_ROBOT_ID"); v != "" {
		cfg.Robot.ID = v
	}

	if v := os.Getenv("MISSIONCORE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("MISSIONCORE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("MISSIONCORE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("MISSIONCORE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("MISSIONCORE_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	if v := os.Getenv("MISSIONCORE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("MISSIONCORE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("MISSIONCORE_START_SIGNAL"); v != "" {
		cfg.Mission.StartSignal = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Robot.ID == "" {
		errs = append(errs, "robot.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && (c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535) {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}

	if c.API.Enabled {
		if c.API.Port < 1 || c.API.Port > 65535 {
			errs = append(errs, "api.port must be between 1 and 65535")
		}
		if c.WebSocket.PingInterval <= 0 || c.WebSocket.PongTimeout <= 0 {
			errs = append(errs, "websocket ping_interval and pong_timeout must be positive")
		}
		if c.WebSocket.MaxMessageSize <= 0 {
			errs = append(errs, "websocket.max_message_size must be positive")
		}
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if c.Mission.AutoShutdownSeconds < 0 {
		errs = append(errs, "mission.auto_shutdown_seconds must not be negative")
	}
	if c.Mission.ShutdownTimeoutSeconds <= 0 {
		errs = append(errs, "mission.shutdown_timeout_seconds must be positive")
	}
	switch c.Mission.StartSignal {
	case StartSignalNone:
	case StartSignalLight:
		if c.Mission.StartSensor == "" {
			errs = append(errs, "mission.start_sensor is required for the light start signal")
		}
	case StartSignalRemote:
		if !c.MQTT.Enabled {
			errs = append(errs, "mission.start_signal remote requires mqtt.enabled")
		}
	default:
		errs = append(errs, "mission.start_signal must be none, light, or remote")
	}
	if c.Mission.HistoryLimit < 0 {
		errs = append(errs, "mission.history_limit must not be negative")
	}

	if c.Hopper.UpPercent < -100 || c.Hopper.UpPercent > 100 ||
		c.Hopper.DownPercent < -100 || c.Hopper.DownPercent > 100 {
		errs = append(errs, "hopper percents must be between -100 and 100")
	}
	if c.Hopper.ShakeIntervalMS <= 0 || c.Hopper.HoldTimeMS <= 0 ||
		c.Hopper.PollIntervalMS <= 0 || c.Hopper.MaxPhaseTimeMS <= 0 {
		errs = append(errs, "hopper intervals must be positive")
	}
	if c.Hopper.MaxRetries < 0 {
		errs = append(errs, "hopper.max_retries must not be negative")
	}

	if c.Simulation.TickMS <= 0 {
		errs = append(errs, "simulation.tick_ms must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetAutoShutdown returns the match time limit, zero when disabled.
func (c *Config) GetAutoShutdown() time.Duration {
	return seconds(c.Mission.AutoShutdownSeconds)
}

// GetShutdownTimeout returns the bound on the shutdown mission.
func (c *Config) GetShutdownTimeout() time.Duration {
	return seconds(c.Mission.ShutdownTimeoutSeconds)
}

// GetSimulationTick returns the simulated control period.
func (c *Config) GetSimulationTick() time.Duration {
	return time.Duration(c.Simulation.TickMS) * time.Millisecond
}

// ShakeInterval returns the half shake cycle.
func (h HopperConfig) ShakeInterval() time.Duration {
	return time.Duration(h.ShakeIntervalMS) * time.Millisecond
}

// HoldTime returns the full lift/lower duration.
func (h HopperConfig) HoldTime() time.Duration {
	return time.Duration(h.HoldTimeMS) * time.Millisecond
}

// PollInterval returns the sensor sampling period.
func (h HopperConfig) PollInterval() time.Duration {
	return time.Duration(h.PollIntervalMS) * time.Millisecond
}

// MaxPhaseTime returns the bound on waiting for an object to appear.
func (h HopperConfig) MaxPhaseTime() time.Duration {
	return time.Duration(h.MaxPhaseTimeMS) * time.Millisecond
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
