package capture

import (
	"errors"
	"math"

	"github.com/camrec/camrec"
	"github.com/camrec/camrec/pkg/driver"
	"github.com/camrec/camrec/pkg/frame"
	"github.com/camrec/camrec/pkg/prop"
)

var errNotFound = errors.New("capture: no video source matches")

// constraintsFor expresses a CaptureFormat as ideal values.
func constraintsFor(f camrec.CaptureFormat) prop.MediaConstraints {
	return prop.MediaConstraints{
		VideoConstraints: prop.VideoConstraints{
			Width:     prop.Int(f.Width),
			Height:    prop.Int(f.Height),
			FrameRate: prop.Float(float32(f.FrameRate)),
		},
	}
}

// bestProperty returns the mode of props closest to c, skipping modes no
// decoder exists for.
func bestProperty(c prop.MediaConstraints, props []prop.Media) (prop.Media, float64, bool) {
	var best prop.Media
	minFitnessDist := math.Inf(1)
	for _, p := range props {
		if _, err := frame.NewDecoder(p.FrameFormat); err != nil {
			continue
		}
		fitnessDist, ok := c.FitnessDistance(p)
		if ok && fitnessDist < minFitnessDist {
			minFitnessDist = fitnessDist
			best = p
		}
	}
	if math.IsInf(minFitnessDist, 1) {
		return prop.Media{}, 0, false
	}
	best.Merge(c)
	return best, minFitnessDist, true
}

func queryDriverProperties(m *driver.Manager, filter driver.FilterFn) map[driver.Driver][]prop.Media {
	var needToClose []driver.Driver
	drivers := m.Query(driver.FilterAnd(driver.FilterVideoRecorder(), filter))
	props := make(map[driver.Driver][]prop.Media)

	for _, d := range drivers {
		if d.Status() == driver.StateClosed {
			if err := d.Open(); err != nil {
				// Skip this driver if we failed to open because we can't get the properties
				continue
			}
			needToClose = append(needToClose, d)
		}

		props[d] = d.Properties()
	}

	for _, d := range needToClose {
		_ = d.Close()
	}
	return props
}

// SelectVideo returns the registered video source, among those accepted by
// filter, whose modes come closest to format. Driver priority breaks near
// ties. A nil filter accepts every source.
func SelectVideo(filter driver.FilterFn, format camrec.CaptureFormat) (driver.Driver, error) {
	return selectVideo(driver.GetManager(), filter, format)
}

func selectVideo(m *driver.Manager, filter driver.FilterFn, format camrec.CaptureFormat) (driver.Driver, error) {
	if filter == nil {
		filter = func(driver.Driver) bool { return true }
	}

	c := constraintsFor(format)
	var bestDriver driver.Driver
	minFitnessDist := math.Inf(1)
	for d, props := range queryDriverProperties(m, filter) {
		_, dist, ok := bestProperty(c, props)
		if !ok {
			continue
		}
		dist -= float64(d.Info().Priority)
		if dist < minFitnessDist || (dist == minFitnessDist && d.ID() < bestDriver.ID()) {
			minFitnessDist = dist
			bestDriver = d
		}
	}

	if bestDriver == nil {
		return nil, errNotFound
	}
	return bestDriver, nil
}
