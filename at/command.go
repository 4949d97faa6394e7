package at

import (
	"fmt"
	"strings"
)

// DefinePDPContext builds the command setting context 1 to the IP protocol
// on the given access point name.
func DefinePDPContext(apn string) string {
	return fmt.Sprintf(`AT+CGDCONT=1,"IP","%s"`, apn)
}

// StartTCP builds the command opening a TCP socket to host:port.
func StartTCP(host string, port int) string {
	return fmt.Sprintf(`AT+CIPSTART="TCP","%s",%d`, host, port)
}

// IsError reports whether a final response line signals a failed command.
func IsError(line string) bool {
	return line == ERROR ||
		line == NoCarrier ||
		line == ConnectFail ||
		strings.HasPrefix(line, CmeError) ||
		strings.HasPrefix(line, CmsError)
}
