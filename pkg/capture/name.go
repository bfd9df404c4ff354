package capture

import (
	"strings"
	"time"
)

const clipTimeLayout = "20060102_150405"

// clipName returns VID_<yyyyMMdd_HHmmss>_<id>.y4m. Only the first group of
// id is used.
func clipName(t time.Time, id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		id = id[:i]
	}
	return "VID_" + t.Format(clipTimeLayout) + "_" + id + ".y4m"
}
