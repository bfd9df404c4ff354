package driver

// DeviceType represents human readable device type. DeviceType
// can be useful to filter the drivers too.
type DeviceType string

const (
	// Camera represents camera devices
	Camera DeviceType = "camera"
	// CmdSource represents frames produced by an external command
	CmdSource DeviceType = "cmdsource"
)

// Priority is subtracted from the fitness distance when sources are ranked,
// so higher priority sources win ties.
type Priority float32

const (
	PriorityHigh   Priority = 0.1
	PriorityNormal Priority = 0.0
	PriorityLow    Priority = -0.1
)
