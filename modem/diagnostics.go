package modem

import (
	"context"
	"log/slog"

	"i4.energy/across/gpstracker/at"
)

// Diagnostics receives everything the modem says. Every transaction is
// reported exactly once, successful or not, together with its raw response.
type Diagnostics interface {
	// Transaction reports a finished exchange. err is non-nil only for
	// transport or cancellation failures; a timeout shows as !res.OK.
	Transaction(tx Transaction, res Result, err error)
	// Echo reports output read outside of a transaction: boot chatter,
	// stale bytes discarded before a command, or an idle drain.
	Echo(data []byte)
}

// LogDiagnostics writes diagnostics as structured log records.
type LogDiagnostics struct {
	Logger *slog.Logger
}

func (d LogDiagnostics) Transaction(tx Transaction, res Result, err error) {
	command := tx.Command
	if command == "" {
		command = "<wait>"
	}
	attrs := []any{
		"command", command,
		"ok", res.OK,
		"elapsed", res.Elapsed,
		"raw", res.Raw,
	}
	if res.Truncated > 0 {
		attrs = append(attrs, "truncated", res.Truncated)
	}

	level := slog.LevelInfo
	switch {
	case err != nil:
		level = slog.LevelError
		attrs = append(attrs, "error", err)
	case !res.OK:
		level = slog.LevelWarn
		attrs = append(attrs, "expected", []string{tx.PatternA, tx.PatternB})
	}
	d.Logger.Log(context.Background(), level, "AT transaction", attrs...)

	for _, line := range at.Lines(res.Raw) {
		kind := at.Classify(line)
		if kind == at.TypeFinal && at.IsError(line) {
			d.Logger.Warn("modem reported error", "command", command, "line", line)
			continue
		}
		d.Logger.Debug("modem line", "command", command, "type", kind.String(), "line", line)
	}
}

func (d LogDiagnostics) Echo(data []byte) {
	if len(data) == 0 {
		return
	}
	d.Logger.Info("modem output", "raw", string(data))
}
