// Package tracker sequences the modem, the GPS receiver and the uploader
// into the periodic tracking cycle.
package tracker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"i4.energy/across/gpstracker/at"
	"i4.energy/across/gpstracker/clock"
	"i4.energy/across/gpstracker/gps"
	"i4.energy/across/gpstracker/modem"
	"i4.energy/across/gpstracker/upload"
)

// ErrMissingDependency is returned by New when a required collaborator
// is nil.
var ErrMissingDependency = errors.New("tracker: missing dependency")

// Session is the AT engine as seen by the tracker.
type Session interface {
	Execute(ctx context.Context, tx modem.Transaction) (modem.Result, error)
	Echo(ctx context.Context) error
	Clock() clock.Clock
}

// Lifecycle resets and configures the modem.
type Lifecycle interface {
	HardReset(ctx context.Context) error
	SoftReset(ctx context.Context) bool
	Recover(ctx context.Context) error
	InitializeParameters(ctx context.Context)
}

// Receiver acquires GPS fixes.
type Receiver interface {
	Enable(ctx context.Context) bool
	PollOnce(ctx context.Context) (gps.Fix, bool)
	Disable(ctx context.Context)
}

// Uploader delivers a fix to the server.
type Uploader interface {
	Upload(ctx context.Context, fix gps.Fix) upload.Outcome
}

// Deps are the tracker's collaborators. Console and Reporter are optional.
type Deps struct {
	Session   Session
	Lifecycle Lifecycle
	GPS       Receiver
	Uploader  Uploader
	Console   Console
	Reporter  Reporter
}

// Machine is the tracking state machine. Tick, Run, HardReset and
// SoftReset must all be called from one goroutine; Snapshot and
// RequestReset may be called from any.
type Machine struct {
	deps   Deps
	config Config
	clock  clock.Clock
	logger *slog.Logger

	// mu guards the fields Snapshot reads. Only the loop goroutine
	// writes them.
	mu       sync.Mutex
	state    State
	entered  uint32
	fix      gps.Fix
	hasFix   bool
	outcome  *upload.Outcome
	cycles   int
	failures int

	progress uint32
	resets   chan bool
}

func New(deps Deps, config Config, logger *slog.Logger) (*Machine, error) {
	if deps.Session == nil || deps.Lifecycle == nil || deps.GPS == nil || deps.Uploader == nil {
		return nil, ErrMissingDependency
	}
	config.setDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	c := deps.Session.Clock()
	return &Machine{
		deps:    deps,
		config:  config,
		clock:   c,
		logger:  logger,
		state:   Init,
		entered: c.Millis(),
		resets:  make(chan bool, 1),
	}, nil
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// transition is the only way the state changes, and it always records
// the time of entry.
func (m *Machine) transition(next State) {
	m.mu.Lock()
	prev := m.state
	m.state = next
	m.entered = m.clock.Millis()
	m.mu.Unlock()
	m.logger.Info("state transition", "from", prev.String(), "to", next.String())
}

func (m *Machine) inState() time.Duration {
	return clock.Since(m.clock, m.entered)
}

// Tick evaluates the current state once, then forwards pending operator
// lines to the modem.
func (m *Machine) Tick(ctx context.Context) {
	select {
	case hard := <-m.resets:
		if hard {
			_ = m.HardReset(ctx)
		} else {
			m.SoftReset(ctx)
		}
	default:
	}

	switch m.state {
	case Init:
		m.echo(ctx)
		if m.inState() >= m.config.StartupDelay {
			m.logger.Info("initializing modem")
			m.deps.Lifecycle.InitializeParameters(ctx)
			m.transition(WaitForReg)
		}
	case WaitForReg:
		// No registration check: the startup delay is trusted to cover it.
		m.transition(Idle)
	case Idle:
		if m.inState() >= m.config.ReadInterval {
			m.transition(GPSReadEnable)
		}
	case GPSReadEnable:
		if m.deps.GPS.Enable(ctx) {
			m.failures = 0
			m.progress = m.clock.Millis()
			m.transition(GPSProcessing)
			break
		}
		if !m.failed(ctx, "GPS enable") {
			m.transition(Idle)
		}
	case GPSProcessing:
		m.processGPS(ctx)
	case UploadGPSData:
		if m.inState() >= m.config.UploadSettle {
			m.upload(ctx)
		}
	case Stop:
		m.echo(ctx)
	}

	m.forwardConsole(ctx)
}

func (m *Machine) processGPS(ctx context.Context) {
	if fix, ok := m.deps.GPS.PollOnce(ctx); ok && fix.LocationValid {
		m.mu.Lock()
		m.fix = fix
		m.hasFix = true
		m.mu.Unlock()
		m.logger.Info("got GPS fix", "fix", fix.String())
		m.transition(UploadGPSData)
		return
	}

	if m.config.GPSTimeout > 0 && m.inState() >= m.config.GPSTimeout {
		m.logger.Warn("no GPS fix", "waited", m.inState())
		m.deps.GPS.Disable(ctx)
		m.transition(Idle)
		return
	}

	if clock.Since(m.clock, m.progress) >= m.config.ProgressInterval {
		m.logger.Info("waiting for GPS fix", "waited", m.inState())
		m.progress = m.clock.Millis()
	}
}

func (m *Machine) upload(ctx context.Context) {
	if !m.hasFix || !m.fix.LocationValid {
		m.logger.Error("upload without a valid fix")
		m.transition(Idle)
		return
	}
	fix := m.fix
	m.logger.Info("uploading fix",
		"latitude", fix.Latitude,
		"longitude", fix.Longitude,
		"altitude", fix.Altitude,
		"timestamp", fix.Timestamp,
		"satellites", fix.Satellites,
		"speed_kph", fix.SpeedKPH,
	)

	outcome := m.deps.Uploader.Upload(ctx, fix)
	m.mu.Lock()
	m.outcome = &outcome
	m.cycles++
	m.mu.Unlock()

	if outcome.Delivered {
		m.logger.Info("fix delivered")
		m.failures = 0
	} else {
		m.logger.Warn("fix not delivered", "step", outcome.FailedStep.String(), "raw", outcome.Raw)
	}

	if m.deps.Reporter != nil {
		if err := m.deps.Reporter.Report(ctx, newReport(fix, outcome)); err != nil {
			m.logger.Warn("telemetry report failed", "error", err)
		}
	}

	if !outcome.Delivered && m.failed(ctx, "upload") {
		return
	}
	m.transition(Stop)
}

// failed counts a failure and recovers the modem once the configured
// number of consecutive failures is reached. It reports whether a
// recovery took place, in which case the state is already INIT.
func (m *Machine) failed(ctx context.Context, what string) bool {
	m.failures++
	if m.config.ResetAfterFailures <= 0 || m.failures < m.config.ResetAfterFailures {
		return false
	}
	m.logger.Warn("recovering modem", "failed", what, "consecutive_failures", m.failures)
	m.failures = 0
	if err := m.deps.Lifecycle.Recover(ctx); err != nil {
		m.logger.Error("modem recovery", "error", err)
	}
	m.transition(Init)
	return true
}

func (m *Machine) echo(ctx context.Context) {
	if err := m.deps.Session.Echo(ctx); err != nil {
		m.logger.Warn("echo", "error", err)
	}
}

func (m *Machine) forwardConsole(ctx context.Context) {
	if m.deps.Console == nil {
		return
	}
	for {
		line, ok := m.deps.Console.Poll()
		if !ok {
			return
		}
		res, err := m.deps.Session.Execute(ctx, modem.Command(line, at.OK, at.OK, m.config.ConsoleTimeout))
		if err != nil {
			m.logger.Warn("console command", "command", line, "error", err)
			continue
		}
		m.logger.Info("console command", "command", line, "ok", res.OK)
	}
}

// HardReset power-cycles the modem and restarts the cycle from INIT.
// A failing reset line is reported but INIT is entered regardless.
func (m *Machine) HardReset(ctx context.Context) error {
	err := m.deps.Lifecycle.HardReset(ctx)
	if err != nil {
		m.logger.Error("hard reset", "error", err)
	}
	m.transition(Init)
	return err
}

// SoftReset restarts the modem firmware and the cycle from INIT.
func (m *Machine) SoftReset(ctx context.Context) bool {
	ok := m.deps.Lifecycle.SoftReset(ctx)
	m.transition(Init)
	return ok
}

// RequestReset asks the loop to reset the modem on its next tick. Only
// one request is kept; later ones are dropped until it is served.
func (m *Machine) RequestReset(hard bool) bool {
	select {
	case m.resets <- hard:
		return true
	default:
		return false
	}
}

// Run ticks until ctx is done.
func (m *Machine) Run(ctx context.Context) error {
	m.logger.Info("tracker running", "state", m.State().String())
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.Tick(ctx)
		m.clock.Sleep(m.config.TickInterval)
	}
}
