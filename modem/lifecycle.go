package modem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"i4.energy/across/gpstracker/at"
)

// Line is a digital output driving one of the modem board's control pins.
type Line interface {
	SetValue(value int) error
}

// PowerLines are the two outputs wired to the modem board.
type PowerLines struct {
	// PowerKey toggles the module off and on.
	PowerKey Line
	// Reset holds the module in reset while high.
	Reset Line
}

// LifecycleConfig holds the timing contract of the modem board.
type LifecycleConfig struct {
	PowerKeyPulse    time.Duration
	PowerSettle      time.Duration
	ResetPulse       time.Duration
	SoftResetTimeout time.Duration
}

func (c *LifecycleConfig) setDefaults() {
	if c.PowerKeyPulse == 0 {
		c.PowerKeyPulse = time.Second
	}
	if c.PowerSettle == 0 {
		c.PowerSettle = 2 * time.Second
	}
	if c.ResetPulse == 0 {
		c.ResetPulse = 3 * time.Second
	}
	if c.SoftResetTimeout == 0 {
		c.SoftResetTimeout = 10 * time.Second
	}
}

// Lifecycle resets the modem and restores its parameters afterwards.
// Resetting the module also drops whatever parameters were changed, so
// InitializeParameters has to run again after either kind of reset.
type Lifecycle struct {
	session *Session
	lines   PowerLines
	config  LifecycleConfig
	logger  *slog.Logger
}

func NewLifecycle(session *Session, lines PowerLines, config LifecycleConfig, logger *slog.Logger) *Lifecycle {
	config.setDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Lifecycle{
		session: session,
		lines:   lines,
		config:  config,
		logger:  logger,
	}
}

// HardReset power-cycles the module: power key pulsed, a settle pause, then
// the reset line pulsed. The order and pulse widths are fixed by the board.
//
// A failing line does not stop the sequence; the first error is returned
// once every step has been attempted.
func (l *Lifecycle) HardReset(ctx context.Context) error {
	if l.lines.PowerKey == nil || l.lines.Reset == nil {
		return ErrNoLine
	}
	l.logger.Info("hard reset", "power_key_pulse", l.config.PowerKeyPulse, "reset_pulse", l.config.ResetPulse)

	err := l.pulse(l.lines.PowerKey, l.config.PowerKeyPulse)
	l.session.clock.Sleep(l.config.PowerSettle)
	err = errors.Join(err, l.pulse(l.lines.Reset, l.config.ResetPulse))
	if err != nil {
		return fmt.Errorf("hard reset: %w", err)
	}
	return nil
}

func (l *Lifecycle) pulse(line Line, width time.Duration) error {
	high := line.SetValue(1)
	l.session.clock.Sleep(width)
	low := line.SetValue(0)
	return errors.Join(high, low)
}

// SoftReset asks the firmware to restart. Completion is not acknowledged
// with OK: the module reports it asynchronously by registering on the
// network again, so the transaction waits for that notification instead.
func (l *Lifecycle) SoftReset(ctx context.Context) bool {
	ok := l.session.Expect(ctx, at.CmdSoftReset, at.UrcRegistered, at.UrcRegistered, l.config.SoftResetTimeout)
	if !ok {
		l.logger.Warn("soft reset not confirmed by registration")
	}
	return ok
}

// Recover attempts a soft reset and falls back to a hard reset when the
// module does not come back.
func (l *Lifecycle) Recover(ctx context.Context) error {
	if l.SoftReset(ctx) {
		return nil
	}
	l.logger.Warn("escalating to hard reset")
	return l.HardReset(ctx)
}

// InitializeParameters applies the settings the tracker relies on. Each
// command is attempted once; a failure is only reported, never fatal.
func (l *Lifecycle) InitializeParameters(ctx context.Context) {
	s := l.session

	if s.ExpectOK(ctx, at.CmdVerboseErrors, 2*time.Second) {
		l.logger.Debug("verbose error codes enabled")
	}
	if s.ExpectOK(ctx, at.CmdSimIdentity, 2*time.Second) {
		l.logger.Debug("SIM identity queried")
	}
	if !s.echoOn {
		if s.ExpectOK(ctx, at.CmdEchoOff, 2*time.Second) {
			l.logger.Info("echo disabled")
		}
	}
	if s.ExpectOK(ctx, at.CmdSMSStorage, 3*time.Second) {
		l.logger.Debug("SMS storage set to SM (SM, SM, SM)")
	}
	if s.ExpectOK(ctx, at.CmdSetTextMode, 2*time.Second) {
		l.logger.Debug("SMS mode set to text")
	}
}
