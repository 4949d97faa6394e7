package tracker

import (
	"context"

	"i4.energy/across/gpstracker/gps"
	"i4.energy/across/gpstracker/upload"
)

// Report summarizes one upload cycle for external observers.
type Report struct {
	Fix        gps.Fix `json:"fix"`
	Unix       int64   `json:"unix"`
	Delivered  bool    `json:"delivered"`
	FailedStep string  `json:"failed_step,omitempty"`
}

func newReport(fix gps.Fix, outcome upload.Outcome) Report {
	r := Report{Fix: fix, Unix: fix.Unix(), Delivered: outcome.Delivered}
	if !outcome.Delivered {
		r.FailedStep = outcome.FailedStep.String()
	}
	return r
}

// Reporter mirrors upload cycles somewhere else, such as a message broker.
type Reporter interface {
	Report(ctx context.Context, r Report) error
}
