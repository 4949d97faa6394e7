package tracker

import "time"

type Config struct {
	// StartupDelay gives the modem time to register before it is configured.
	StartupDelay time.Duration
	// ReadInterval is the pause in IDLE before the next fix is requested.
	ReadInterval time.Duration
	// ProgressInterval paces the progress marker while waiting for a fix.
	ProgressInterval time.Duration
	// UploadSettle delays the upload after a fix was obtained.
	UploadSettle time.Duration
	// GPSTimeout bounds the wait for a fix. Zero waits forever.
	GPSTimeout time.Duration
	// ConsoleTimeout bounds an operator command.
	ConsoleTimeout time.Duration
	// TickInterval is the pause between two ticks in Run.
	TickInterval time.Duration
	// ResetAfterFailures recovers the modem after that many consecutive
	// failed GPS enables or uploads. Zero disables recovery.
	ResetAfterFailures int
}

func (c *Config) setDefaults() {
	if c.StartupDelay == 0 {
		c.StartupDelay = 30 * time.Second
	}
	if c.ReadInterval == 0 {
		c.ReadInterval = 5 * time.Minute
	}
	if c.ProgressInterval == 0 {
		c.ProgressInterval = time.Second
	}
	if c.UploadSettle == 0 {
		c.UploadSettle = 5 * time.Second
	}
	if c.ConsoleTimeout == 0 {
		c.ConsoleTimeout = 5 * time.Second
	}
	if c.TickInterval == 0 {
		c.TickInterval = 10 * time.Millisecond
	}
}

// DefaultGPSTimeout is the fix wait bound used by the binary.
const DefaultGPSTimeout = 10 * time.Minute
