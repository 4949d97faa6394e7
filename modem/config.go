package modem

import (
	"log/slog"
	"time"

	"i4.energy/across/gpstracker/at"
	"i4.energy/across/gpstracker/clock"
)

func (c *Config) validate() error {
	if c.Dialer == nil {
		return ErrNoDialer
	}
	return nil
}

type Config struct {
	Dialer      Dialer
	Clock       clock.Clock
	Diagnostics Diagnostics
	Logger      *slog.Logger
	// PollInterval is how long the engine pauses when no byte is pending.
	PollInterval time.Duration
	// BufferSize bounds the response accumulator of a transaction.
	BufferSize int
	EchoOn     bool
}

func (c *Config) setDefaults() {
	if c.Clock == nil {
		c.Clock = clock.NewSystem()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Diagnostics == nil {
		c.Diagnostics = LogDiagnostics{Logger: c.Logger}
	}
	if c.PollInterval == 0 {
		c.PollInterval = 10 * time.Millisecond
	}
	if c.BufferSize == 0 {
		c.BufferSize = at.DefaultBufferSize
	}
}

// ConfigBuilder assembles a Config step by step and validates it on Build.
type ConfigBuilder struct {
	config Config
}

func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{}
}

func (b *ConfigBuilder) WithDialer(d Dialer) *ConfigBuilder {
	b.config.Dialer = d
	return b
}

func (b *ConfigBuilder) WithClock(c clock.Clock) *ConfigBuilder {
	b.config.Clock = c
	return b
}

func (b *ConfigBuilder) WithDiagnostics(d Diagnostics) *ConfigBuilder {
	b.config.Diagnostics = d
	return b
}

func (b *ConfigBuilder) WithLogger(l *slog.Logger) *ConfigBuilder {
	b.config.Logger = l
	return b
}

func (b *ConfigBuilder) WithPollInterval(d time.Duration) *ConfigBuilder {
	b.config.PollInterval = d
	return b
}

func (b *ConfigBuilder) WithBufferSize(n int) *ConfigBuilder {
	b.config.BufferSize = n
	return b
}

func (b *ConfigBuilder) WithEchoOn(on bool) *ConfigBuilder {
	b.config.EchoOn = on
	return b
}

// Build validates the collected settings and fills in defaults.
func (b *ConfigBuilder) Build() (Config, error) {
	config := b.config
	if err := config.validate(); err != nil {
		return Config{}, err
	}
	config.setDefaults()
	return config, nil
}
