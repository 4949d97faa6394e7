package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"i4.energy/across/gpstracker/tracker"
)

// Config holds the application configuration
type Config struct {
	// BindAddress is the address the operator server listens on (e.g. "0.0.0.0:8080")
	BindAddress string `yaml:"bind_address"`
	// SerialPort is the path to the modem's serial port (e.g. "/dev/ttyS1")
	SerialPort string `yaml:"serial_port"`
	// BaudRate is the baud rate for serial communication with the modem (e.g. 115200)
	BaudRate int `yaml:"baud_rate"`
	// LogLevel sets the logging level (e.g. "debug", "info", "warn", "error")
	LogLevel string `yaml:"log_level"`
	// LogFormat selects "json" records or human readable "text"
	LogFormat string `yaml:"log_format"`
	// Echo leaves command echo enabled on the modem
	Echo bool `yaml:"echo"`

	// GPIOChip is the GPIO character device driving the modem board
	GPIOChip string `yaml:"gpio_chip"`
	// PowerKeyLine and ResetLine are line offsets or names on GPIOChip
	PowerKeyLine string `yaml:"power_key_line"`
	ResetLine    string `yaml:"reset_line"`

	// UploadHost, UploadPort and UploadPath locate the tracking server
	UploadHost string `yaml:"upload_host"`
	UploadPort int    `yaml:"upload_port"`
	UploadPath string `yaml:"upload_path"`
	// APN is the access point name of the packet data context
	APN string `yaml:"apn"`

	// MQTTBroker enables telemetry when set (e.g. "tcp://localhost:1883")
	MQTTBroker string `yaml:"mqtt_broker"`
	MQTTTopic  string `yaml:"mqtt_topic"`

	StartupDelay       time.Duration `yaml:"startup_delay"`
	ReadInterval       time.Duration `yaml:"read_interval"`
	GPSTimeout         time.Duration `yaml:"gps_timeout"`
	ResetAfterFailures int           `yaml:"reset_after_failures"`
}

// ConfigOption is a function that modifies a Config
type ConfigOption func(*Config) error

// LoadConfig creates a new config by applying the given options in order
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	config := &Config{}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// validate rejects zero intervals, which the tracker would replace with its
// own defaults.
func (c *Config) validate() error {
	if c.StartupDelay <= 0 {
		return fmt.Errorf("startup delay must be positive, got %s", c.StartupDelay)
	}
	if c.ReadInterval <= 0 {
		return fmt.Errorf("read interval must be positive, got %s", c.ReadInterval)
	}
	if c.GPSTimeout < 0 {
		return fmt.Errorf("gps timeout must not be negative, got %s", c.GPSTimeout)
	}
	if c.ResetAfterFailures < 0 {
		return fmt.Errorf("reset after failures must not be negative, got %d", c.ResetAfterFailures)
	}
	return nil
}

// WithDefaults applies default configuration values
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		c.BindAddress = "0.0.0.0:8080"
		c.SerialPort = "/dev/ttyS1"
		c.BaudRate = 115200
		c.LogLevel = "info"
		c.LogFormat = "json"
		c.GPIOChip = "/dev/gpiochip0"
		c.PowerKeyLine = "17"
		c.ResetLine = "27"
		c.UploadHost = "altus.pythonanywhere.com"
		c.UploadPort = 80
		c.UploadPath = "/"
		c.APN = "internet"
		c.MQTTTopic = "gpstracker/fix"
		c.StartupDelay = 30 * time.Second
		c.ReadInterval = 5 * time.Minute
		c.GPSTimeout = tracker.DefaultGPSTimeout
		return nil
	}
}

// WithFile overlays the settings found in a YAML file. An empty path is
// ignored.
func WithFile(path string) ConfigOption {
	return func(c *Config) error {
		if path == "" {
			return nil
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return fmt.Errorf("parse config %s: %w", path, err)
		}
		return nil
	}
}

// WithEnv loads configuration from environment variables
func WithEnv() ConfigOption {
	return func(c *Config) error {
		for name, dst := range map[string]*string{
			"BIND_ADDRESS":   &c.BindAddress,
			"SERIAL_PORT":    &c.SerialPort,
			"LOG_LEVEL":      &c.LogLevel,
			"LOG_FORMAT":     &c.LogFormat,
			"GPIO_CHIP":      &c.GPIOChip,
			"POWER_KEY_LINE": &c.PowerKeyLine,
			"RESET_LINE":     &c.ResetLine,
			"UPLOAD_HOST":    &c.UploadHost,
			"UPLOAD_PATH":    &c.UploadPath,
			"APN":            &c.APN,
			"MQTT_BROKER":    &c.MQTTBroker,
			"MQTT_TOPIC":     &c.MQTTTopic,
		} {
			if v := os.Getenv(name); v != "" {
				*dst = v
			}
		}

		for name, dst := range map[string]*int{
			"BAUD_RATE":            &c.BaudRate,
			"UPLOAD_PORT":          &c.UploadPort,
			"RESET_AFTER_FAILURES": &c.ResetAfterFailures,
		} {
			if v := os.Getenv(name); v != "" {
				n, err := strconv.Atoi(v)
				if err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				*dst = n
			}
		}

		for name, dst := range map[string]*time.Duration{
			"STARTUP_DELAY": &c.StartupDelay,
			"READ_INTERVAL": &c.ReadInterval,
			"GPS_TIMEOUT":   &c.GPSTimeout,
		} {
			if v := os.Getenv(name); v != "" {
				d, err := time.ParseDuration(v)
				if err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				*dst = d
			}
		}

		if echo := os.Getenv("ECHO"); echo != "" {
			b, err := strconv.ParseBool(echo)
			if err != nil {
				return fmt.Errorf("ECHO: %w", err)
			}
			c.Echo = b
		}

		return nil
	}
}

// WithFlags loads configuration from command-line flags. Only flags set
// on the command line override earlier sources.
func WithFlags(fSet *pflag.FlagSet) ConfigOption {
	return func(c *Config) error {
		var err error
		fSet.Visit(func(f *pflag.Flag) {
			if err != nil {
				return
			}
			v := f.Value.String()
			switch f.Name {
			case "bind-address":
				c.BindAddress = v
			case "serial-port":
				c.SerialPort = v
			case "baud-rate":
				c.BaudRate, err = strconv.Atoi(v)
			case "log-level":
				c.LogLevel = v
			case "log-format":
				c.LogFormat = v
			case "echo":
				c.Echo, err = strconv.ParseBool(v)
			case "gpio-chip":
				c.GPIOChip = v
			case "power-key-line":
				c.PowerKeyLine = v
			case "reset-line":
				c.ResetLine = v
			case "upload-host":
				c.UploadHost = v
			case "upload-port":
				c.UploadPort, err = strconv.Atoi(v)
			case "upload-path":
				c.UploadPath = v
			case "apn":
				c.APN = v
			case "mqtt-broker":
				c.MQTTBroker = v
			case "mqtt-topic":
				c.MQTTTopic = v
			case "startup-delay":
				c.StartupDelay, err = time.ParseDuration(v)
			case "read-interval":
				c.ReadInterval, err = time.ParseDuration(v)
			case "gps-timeout":
				c.GPSTimeout, err = time.ParseDuration(v)
			case "reset-after-failures":
				c.ResetAfterFailures, err = strconv.Atoi(v)
			}
			if err != nil {
				err = fmt.Errorf("flag --%s: %w", f.Name, err)
			}
		})
		return err
	}
}

// RegisterFlags declares every flag WithFlags understands on fSet.
func RegisterFlags(fSet *pflag.FlagSet) {
	fSet.StringP("config", "c", "", "YAML configuration file")
	fSet.String("bind-address", "0.0.0.0:8080", "Bind address for the operator HTTP server")
	fSet.StringP("serial-port", "p", "/dev/ttyS1", "Serial port to connect to the modem")
	fSet.Int("baud-rate", 115200, "Baud rate for serial communication")
	fSet.String("log-level", "info", "Log level (debug, info, warn, error)")
	fSet.String("log-format", "json", "Log format (json, text)")
	fSet.Bool("echo", false, "Leave command echo enabled on the modem")
	fSet.String("gpio-chip", "/dev/gpiochip0", "GPIO chip driving the modem board")
	fSet.String("power-key-line", "17", "Power key line offset or name")
	fSet.String("reset-line", "27", "Reset line offset or name")
	fSet.String("upload-host", "altus.pythonanywhere.com", "Tracking server host")
	fSet.Int("upload-port", 80, "Tracking server port")
	fSet.String("upload-path", "/", "Tracking server path")
	fSet.String("apn", "internet", "Access point name")
	fSet.String("mqtt-broker", "", "MQTT broker for telemetry (disabled when empty)")
	fSet.String("mqtt-topic", "gpstracker/fix", "MQTT topic for telemetry")
	fSet.Duration("startup-delay", 30*time.Second, "Delay before the modem is configured (must be positive)")
	fSet.Duration("read-interval", 5*time.Minute, "Pause between tracking cycles (must be positive)")
	fSet.Duration("gps-timeout", tracker.DefaultGPSTimeout, "Longest wait for a GPS fix (0 waits forever)")
	fSet.Int("reset-after-failures", 0, "Recover the modem after this many consecutive failures (0 disables)")
}
