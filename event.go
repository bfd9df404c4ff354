package camrec

// EventType tells what an Event reports.
type EventType int

const (
	// EventStateChanged is sent on every Idle/Recording transition.
	EventStateChanged EventType = iota
	// EventFormatChanged is sent when the pending format changes.
	EventFormatChanged
	// EventFinished carries a new RecordingResult.
	EventFinished
	// EventSaved is sent once a result has been persisted.
	EventSaved
	// EventFailed carries a *RecordingError.
	EventFailed
)

func (t EventType) String() string {
	switch t {
	case EventStateChanged:
		return "state-changed"
	case EventFormatChanged:
		return "format-changed"
	case EventFinished:
		return "finished"
	case EventSaved:
		return "saved"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers. Only the fields relevant to Type are set.
type Event struct {
	Type   EventType
	State  State
	Format CaptureFormat
	Result *RecordingResult
	Err    error
}
