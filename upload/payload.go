package upload

import (
	"fmt"
	"strings"

	"i4.energy/across/gpstracker/gps"
)

const contentType = "application/x-www-form-urlencoded"

// Payload encodes a fix as the form body expected by the tracking server.
// The timestamp is sent as seconds since 2000, unconverted.
func Payload(fix gps.Fix) string {
	return fmt.Sprintf("lat=%.6f&lng=%.6f&alt=%d&dt=%d&sat=%d&spd=%.2f",
		fix.Latitude, fix.Longitude, fix.Altitude, fix.Timestamp, fix.Satellites, fix.SpeedKPH)
}

// Request frames payload as a minimal HTTP/1.1 POST.
func Request(host, path, userAgent, payload string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "POST %s HTTP/1.1\r\n", path)
	fmt.Fprintf(&b, "Host: %s\r\n", host)
	fmt.Fprintf(&b, "User-Agent: %s\r\n", userAgent)
	fmt.Fprintf(&b, "Content-Length: %d\r\n", len(payload))
	fmt.Fprintf(&b, "Content-Type: %s\r\n", contentType)
	b.WriteString("\r\n")
	b.WriteString(payload)
	b.WriteString("\r\n\r\n")
	return b.String()
}
