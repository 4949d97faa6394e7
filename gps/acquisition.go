package gps

import (
	"context"
	"log/slog"
	"time"

	"i4.energy/across/gpstracker/at"
	"i4.energy/across/gpstracker/modem"
)

type Config struct {
	// CommandTimeout bounds each GPS control command.
	CommandTimeout time.Duration
}

func (c *Config) setDefaults() {
	if c.CommandTimeout == 0 {
		c.CommandTimeout = 3 * time.Second
	}
}

// Acquisition switches the receiver on, relays its NMEA output over the
// modem link and watches it for a valid fix.
type Acquisition struct {
	session *modem.Session
	decoder *Decoder
	config  Config
	logger  *slog.Logger
}

func NewAcquisition(session *modem.Session, config Config, logger *slog.Logger) *Acquisition {
	config.setDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Acquisition{
		session: session,
		decoder: NewDecoder(logger),
		config:  config,
		logger:  logger,
	}
}

// Enable powers the receiver and starts the NMEA relay. It fails only when
// the receiver does not power up; a relay that is not acknowledged is
// logged and left for PollOnce to reveal.
func (a *Acquisition) Enable(ctx context.Context) bool {
	a.decoder.Reset()
	if !a.session.ExpectOK(ctx, at.CmdGPSOn, a.config.CommandTimeout) {
		a.logger.Warn("GPS did not power up")
		return false
	}
	if !a.session.ExpectOK(ctx, at.CmdGPSRelayOn, a.config.CommandTimeout) {
		a.logger.Warn("NMEA relay not acknowledged")
	}
	return true
}

// PollOnce feeds whatever the receiver has sent so far to the decoder and
// reports the first completed fix with a valid location. On success the
// relay is stopped; if the modem does not acknowledge that, the fix is
// still returned.
func (a *Acquisition) PollOnce(ctx context.Context) (Fix, bool) {
	data, err := a.session.Drain(ctx)
	if err != nil {
		a.logger.Warn("reading NMEA relay", "error", err)
	}
	a.decoder.Write(data)

	for a.decoder.Available() {
		fix := a.decoder.Read()
		if !fix.LocationValid {
			continue
		}
		if !a.session.ExpectOK(ctx, at.CmdGPSRelayOff, a.config.CommandTimeout) {
			a.logger.Warn("NMEA relay stop not acknowledged")
		}
		return fix, true
	}
	return Fix{}, false
}

// Disable stops the relay and powers the receiver down.
func (a *Acquisition) Disable(ctx context.Context) {
	if !a.session.ExpectOK(ctx, at.CmdGPSRelayOff, a.config.CommandTimeout) {
		a.logger.Warn("NMEA relay stop not acknowledged")
	}
	if !a.session.ExpectOK(ctx, at.CmdGPSOff, a.config.CommandTimeout) {
		a.logger.Warn("GPS power down not acknowledged")
	}
}
