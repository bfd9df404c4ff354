package camrec

// State is the recording state of a Controller.
type State int

const (
	// Idle means no capture is active.
	Idle State = iota
	// Recording means a capture is in progress with a locked format.
	Recording
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	default:
		return "unknown"
	}
}

// PermissionStatus is the host's answer to the camera permission request.
type PermissionStatus int

const (
	PermissionUnknown PermissionStatus = iota
	PermissionGranted
	PermissionDenied
)

func (p PermissionStatus) String() string {
	switch p {
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return "unknown"
	}
}
