// Package gps turns the NMEA stream relayed by the modem into location
// fixes.
package gps

import (
	"log/slog"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"
)

const (
	// knotsToKPH converts speed over ground from knots.
	knotsToKPH = 1.852
	// maxSentence bounds a buffered line. NMEA caps sentences at 82
	// characters; anything longer is line noise.
	maxSentence = 128
	// maxQueued bounds completed fixes waiting to be read.
	maxQueued = 8
)

// Decoder is an io.Writer accepting raw receiver output. It frames lines,
// parses RMC and GGA sentences and merges the pair reported for the same
// UTC time into a single Fix.
//
// A group is complete when both sentences of one time have arrived, or
// when a sentence for a later time shows the GGA half will not come.
type Decoder struct {
	logger *slog.Logger
	line   []byte
	group  group
	queue  []Fix
	// Errors counts sentences that failed to parse.
	Errors int
}

type group struct {
	time nmea.Time
	rmc  *nmea.RMC
	gga  *nmea.GGA
}

func NewDecoder(logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Decoder{logger: logger}
}

// Write consumes p. It never fails.
func (d *Decoder) Write(p []byte) (int, error) {
	for _, b := range p {
		switch b {
		case '\n':
			d.sentence(strings.TrimSpace(string(d.line)))
			d.line = d.line[:0]
		case '$':
			// A start marker always begins a new sentence, which resyncs
			// after a line lost its terminator.
			d.line = append(d.line[:0], b)
		default:
			if len(d.line) < maxSentence {
				d.line = append(d.line, b)
			}
		}
	}
	return len(p), nil
}

// Available reports whether a completed fix is waiting.
func (d *Decoder) Available() bool {
	return len(d.queue) > 0
}

// Read returns the oldest completed fix, or a zero Fix if none is waiting.
func (d *Decoder) Read() Fix {
	if len(d.queue) == 0 {
		return Fix{}
	}
	f := d.queue[0]
	d.queue = d.queue[1:]
	return f
}

// Reset drops partial input, the open group and queued fixes.
func (d *Decoder) Reset() {
	d.line = d.line[:0]
	d.group = group{}
	d.queue = nil
}

func (d *Decoder) sentence(line string) {
	if !strings.HasPrefix(line, "$") {
		return
	}
	s, err := nmea.Parse(line)
	if err != nil {
		d.Errors++
		d.logger.Debug("NMEA parse error", "error", err, "line", line)
		return
	}

	switch s.DataType() {
	case nmea.TypeRMC:
		m := s.(nmea.RMC)
		d.advance(m.Time)
		d.group.rmc = &m
	case nmea.TypeGGA:
		m := s.(nmea.GGA)
		d.advance(m.Time)
		d.group.gga = &m
	default:
		return
	}

	if d.group.rmc != nil && d.group.gga != nil {
		d.complete()
	}
}

// advance moves the open group to t, completing the previous one when it
// already carried position data.
func (d *Decoder) advance(t nmea.Time) {
	if d.group.time == t {
		return
	}
	if d.group.rmc != nil {
		d.complete()
	}
	d.group = group{time: t}
}

func (d *Decoder) complete() {
	f := merge(d.group.rmc, d.group.gga)
	d.group = group{time: d.group.time}
	if len(d.queue) == maxQueued {
		d.queue = d.queue[1:]
	}
	d.queue = append(d.queue, f)
}

func merge(rmc *nmea.RMC, gga *nmea.GGA) Fix {
	f := Fix{
		Latitude:      rmc.Latitude,
		Longitude:     rmc.Longitude,
		SpeedKPH:      rmc.Speed * knotsToKPH,
		LocationValid: rmc.Validity == nmea.ValidRMC,
	}
	if rmc.Date.Valid && rmc.Time.Valid {
		t := time.Date(2000+rmc.Date.YY, time.Month(rmc.Date.MM), rmc.Date.DD,
			rmc.Time.Hour, rmc.Time.Minute, rmc.Time.Second, 0, time.UTC)
		f.Timestamp = t.Unix() - Epoch2000
	}
	if gga != nil {
		f.Altitude = int(gga.Altitude)
		f.Satellites = uint(gga.NumSatellites)
		f.LocationValid = f.LocationValid && gga.FixQuality != nmea.Invalid
	}
	return f
}
