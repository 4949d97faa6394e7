package at

const (
	// Terminal Control
	CRLF   = "\r\n"
	Prompt = "> "
	// CtrlZ marks the end of outgoing data after AT+CIPSEND.
	CtrlZ = "\x1a"

	// Response Codes
	OK          = "OK"
	ERROR       = "ERROR"
	NoCarrier   = "NO CARRIER"
	ConnectOK   = "CONNECT OK"
	ConnectFail = "CONNECT FAIL"
	CmeError    = "+CME ERROR:"
	CmsError    = "+CMS ERROR:"
	SendPrompt  = ">"

	// URCs (Unsolicited Result Codes)
	UrcTimeZone     = "+CTZV"
	UrcRegistration = "+CREG:"
	UrcRegistered   = "+CREG: 1"
	UrcNewMsg       = "+CMTI:"
	UrcCall         = "RING"

	// HTTPSuccess and HTTPSuccessLegacy are the status lines looked for in
	// the server reply once a socket is open. An echoed request may carry
	// 200 in its form values, so the code alone never counts.
	HTTPSuccess       = "HTTP/1.1 200"
	HTTPSuccessLegacy = "HTTP/1.0 200"
)

// Commands understood by the A7 GSM/GPRS/GPS module.
const (
	CmdAt            = "AT"
	CmdEchoOff       = "ATE0"
	CmdVerboseErrors = "AT+CMEE=2"
	CmdSimIdentity   = "AT+CCID"
	CmdSMSStorage    = `AT+CPMS="SM","SM","SM"`
	CmdSetTextMode   = "AT+CMGF=1"
	CmdSoftReset     = "AT+RST=1"

	CmdGPSOn       = "AT+GPS=1"
	CmdGPSOff      = "AT+GPS=0"
	CmdGPSRelayOn  = "AT+GPSRD=1"
	CmdGPSRelayOff = "AT+GPSRD=0"

	CmdAttach            = "AT+CGATT=1"
	CmdActivateContext   = "AT+CGACT=1,1"
	CmdDeactivateContext = "AT+CGACT=0"
	CmdSend              = "AT+CIPSEND"
	CmdClose             = "AT+CIPCLOSE"
)

type ResponseType int

const (
	TypeFinal  ResponseType = iota // OK, ERROR
	TypeURC                        // Asynchronous notifications
	TypeData                       // Intermediate command output (+CCID: ...)
	TypePrompt                     // CIPSEND input prompt
)

func (t ResponseType) String() string {
	switch t {
	case TypeFinal:
		return "final"
	case TypeURC:
		return "urc"
	case TypeData:
		return "data"
	case TypePrompt:
		return "prompt"
	default:
		return "unknown"
	}
}
