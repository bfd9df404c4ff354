package camrec

import "time"

// RecordingResult describes a finished clip. It is passed by value and
// never changes after the controller creates it.
type RecordingResult struct {
	FilePath string
	// Duration in seconds.
	Duration float64
	Size     int64
	Format   CaptureFormat
}

// Elapsed returns Duration as a time.Duration.
func (r RecordingResult) Elapsed() time.Duration {
	return time.Duration(r.Duration * float64(time.Second))
}
