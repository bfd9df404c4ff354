package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/camrec/camrec"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Observe(camrec.Event{Type: camrec.EventStateChanged, State: camrec.Recording})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.recording))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.started))

	m.Observe(camrec.Event{Type: camrec.EventStateChanged, State: camrec.Idle})
	m.Observe(camrec.Event{Type: camrec.EventFinished, Result: &camrec.RecordingResult{Duration: 5.2, Size: 1048576}})
	m.Observe(camrec.Event{Type: camrec.EventSaved})
	m.Observe(camrec.Event{Type: camrec.EventFormatChanged})

	assert.Equal(t, 0.0, testutil.ToFloat64(m.recording))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.finished))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.saved))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.formatChanges))
	assert.InDelta(t, 5.2, testutil.ToFloat64(m.recordedSecs), 1e-9)
	assert.Equal(t, 1048576.0, testutil.ToFloat64(m.recordedBytes))
}

func TestFailureKinds(t *testing.T) {
	m := New(prometheus.NewRegistry())

	cases := map[string]error{
		"not_ready":      camrec.ErrNotReady,
		"hardware_start": camrec.ErrHardwareStart,
		"hardware_stop":  camrec.ErrHardwareStop,
		"persistence":    camrec.ErrPersistence,
		"unknown":        errors.New("other"),
	}
	for label, err := range cases {
		m.Observe(camrec.Event{Type: camrec.EventFailed, Err: err})
		assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues(label)), label)
	}
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.Observe(camrec.Event{Type: camrec.EventStateChanged, State: camrec.Recording})

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "camrec_recordings_started_total 1"))
	assert.True(t, strings.Contains(string(body), "camrec_recording 1"))
}
