package tracker

// State is the tracker's single control state.
type State int

const (
	Init State = iota
	WaitForReg
	Idle
	GPSReadEnable
	GPSProcessing
	UploadGPSData
	Stop
)

func (s State) String() string {
	switch s {
	case Init:
		return "INIT"
	case WaitForReg:
		return "WAIT_FOR_REG"
	case Idle:
		return "IDLE"
	case GPSReadEnable:
		return "GPS_READ_ENABLE"
	case GPSProcessing:
		return "GPS_PROCESSING"
	case UploadGPSData:
		return "UPLOAD_GPS_DATA"
	case Stop:
		return "STOP"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the state by name in JSON status documents.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
