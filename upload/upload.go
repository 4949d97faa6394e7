// Package upload delivers a fix to the tracking server through the modem's
// built-in TCP/IP stack.
package upload

import (
	"context"
	"log/slog"
	"time"

	"i4.energy/across/gpstracker/at"
	"i4.energy/across/gpstracker/gps"
	"i4.energy/across/gpstracker/modem"
)

// Step identifies a stage of the upload sequence.
type Step int

const (
	StepNone Step = iota
	StepAttach
	StepActivate
	StepOpen
	StepSend
	StepResponse
)

func (s Step) String() string {
	switch s {
	case StepNone:
		return "none"
	case StepAttach:
		return "attach"
	case StepActivate:
		return "activate"
	case StepOpen:
		return "open"
	case StepSend:
		return "send"
	case StepResponse:
		return "response"
	default:
		return "unknown"
	}
}

func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Outcome reports how far an upload got.
type Outcome struct {
	// Delivered is set when the server answered with the success token.
	Delivered bool `json:"delivered"`
	// FailedStep is the step that short-circuited the sequence.
	FailedStep Step `json:"failed_step"`
	// Raw is the response of the failed step.
	Raw string `json:"raw,omitempty"`
}

type Config struct {
	Host      string
	Port      int
	Path      string
	APN       string
	UserAgent string

	AttachTimeout   time.Duration
	ContextTimeout  time.Duration
	ContextSettle   time.Duration
	ActivateTimeout time.Duration
	OpenTimeout     time.Duration
	SendTimeout     time.Duration
	SendSettle      time.Duration
	ResponseTimeout time.Duration
	TeardownTimeout time.Duration
}

func (c *Config) setDefaults() {
	if c.Host == "" {
		c.Host = "altus.pythonanywhere.com"
	}
	if c.Port == 0 {
		c.Port = 80
	}
	if c.Path == "" {
		c.Path = "/"
	}
	if c.APN == "" {
		c.APN = "internet"
	}
	if c.UserAgent == "" {
		c.UserAgent = "gpstracker/1.0"
	}
	if c.AttachTimeout == 0 {
		c.AttachTimeout = 5 * time.Second
	}
	if c.ContextTimeout == 0 {
		c.ContextTimeout = 10 * time.Second
	}
	if c.ContextSettle == 0 {
		c.ContextSettle = 3 * time.Second
	}
	if c.ActivateTimeout == 0 {
		c.ActivateTimeout = 2500 * time.Millisecond
	}
	if c.OpenTimeout == 0 {
		c.OpenTimeout = 6 * time.Second
	}
	if c.SendTimeout == 0 {
		c.SendTimeout = 6 * time.Second
	}
	if c.SendSettle == 0 {
		c.SendSettle = time.Second
	}
	if c.ResponseTimeout == 0 {
		c.ResponseTimeout = 10 * time.Second
	}
	if c.TeardownTimeout == 0 {
		c.TeardownTimeout = 3 * time.Second
	}
}

// Sequencer runs the fixed attach, activate, open, send and close sequence.
type Sequencer struct {
	session *modem.Session
	config  Config
	logger  *slog.Logger
}

func NewSequencer(session *modem.Session, config Config, logger *slog.Logger) *Sequencer {
	config.setDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Sequencer{session: session, config: config, logger: logger}
}

// Config returns the effective configuration.
func (q *Sequencer) Config() Config {
	return q.config
}

// Upload posts fix to the server. Steps run strictly in order and the
// first failure skips the rest. Once attached, the socket and the packet
// context are always torn down, whatever happened in between.
func (q *Sequencer) Upload(ctx context.Context, fix gps.Fix) Outcome {
	c := q.config
	s := q.session

	res, err := s.Execute(ctx, modem.Command(at.CmdAttach, at.UrcTimeZone, at.OK, c.AttachTimeout))
	if err != nil || !res.OK {
		return q.fail(StepAttach, res)
	}
	q.logger.Info("attached to packet domain")

	defer q.teardown(ctx)

	// The firmware answers the context definition inconsistently, so its
	// result carries no information.
	s.ExpectOK(ctx, at.DefinePDPContext(c.APN), c.ContextTimeout)
	s.Clock().Sleep(c.ContextSettle)

	res, err = s.Execute(ctx, modem.Command(at.CmdActivateContext, at.OK, at.OK, c.ActivateTimeout))
	if err != nil || !res.OK {
		return q.fail(StepActivate, res)
	}
	q.logger.Info("context activated")

	res, err = s.Execute(ctx, modem.Command(at.StartTCP(c.Host, c.Port), at.ConnectOK, at.OK, c.OpenTimeout))
	if err != nil || !res.OK {
		return q.fail(StepOpen, res)
	}
	q.logger.Info("connected", "host", c.Host, "port", c.Port)

	res, err = s.Execute(ctx, modem.Command(at.CmdSend, at.SendPrompt, at.OK, c.SendTimeout))
	if err != nil || !res.OK {
		return q.fail(StepSend, res)
	}
	payload := Payload(fix)
	request := Request(c.Host, c.Path, c.UserAgent, payload)
	if err := s.Send(ctx, []byte(request)); err != nil {
		q.logger.Error("writing request", "error", err)
		return q.fail(StepSend, res)
	}
	if err := s.Send(ctx, []byte(at.CtrlZ)); err != nil {
		q.logger.Error("writing end of data", "error", err)
		return q.fail(StepSend, res)
	}
	s.Clock().Sleep(c.SendSettle)
	q.logger.Debug("request sent", "payload", payload)

	res, err = s.Execute(ctx, modem.Wait(at.HTTPSuccess, at.HTTPSuccessLegacy, c.ResponseTimeout))
	if err != nil || !res.OK {
		return q.fail(StepResponse, res)
	}
	q.logger.Info("server accepted fix")
	return Outcome{Delivered: true}
}

func (q *Sequencer) fail(step Step, res modem.Result) Outcome {
	q.logger.Warn("upload failed", "step", step.String(), "raw", res.Raw)
	return Outcome{FailedStep: step, Raw: res.Raw}
}

func (q *Sequencer) teardown(ctx context.Context) {
	if !q.session.ExpectOK(ctx, at.CmdClose, q.config.TeardownTimeout) {
		q.logger.Warn("socket close not acknowledged")
	}
	if !q.session.ExpectOK(ctx, at.CmdDeactivateContext, q.config.TeardownTimeout) {
		q.logger.Warn("context deactivation not acknowledged")
	}
}
