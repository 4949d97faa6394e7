package gps

import (
	"fmt"
	"time"
)

// Epoch2000 is the Unix time of 2000-01-01T00:00:00Z, the origin of
// Fix.Timestamp.
const Epoch2000 = 946684800

// Fix represents a single combined GPS fix suitable for upload and JSON.
type Fix struct {
	Latitude      float64 `json:"lat"`   // decimal degrees
	Longitude     float64 `json:"lng"`   // decimal degrees
	Altitude      int     `json:"alt"`   // meters, truncated
	Timestamp     int64   `json:"dt"`    // seconds since 2000-01-01T00:00Z
	Satellites    uint    `json:"sat"`   // satellites in use
	SpeedKPH      float64 `json:"spd"`   // speed over ground
	LocationValid bool    `json:"valid"` // receiver reports a usable position
}

// Unix converts Timestamp to seconds since the Unix epoch.
func (f Fix) Unix() int64 {
	return f.Timestamp + Epoch2000
}

// Time returns the fix time in UTC.
func (f Fix) Time() time.Time {
	return time.Unix(f.Unix(), 0).UTC()
}

func (f Fix) String() string {
	return fmt.Sprintf("%.6f,%.6f alt=%dm sat=%d spd=%.2fkph at %s",
		f.Latitude, f.Longitude, f.Altitude, f.Satellites, f.SpeedKPH, f.Time().Format(time.RFC3339))
}
