package logging

import (
	"testing"

	"github.com/pion/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]logging.LogLevel{
		"error":   logging.LogLevelError,
		"WARN":    logging.LogLevelWarn,
		"":        logging.LogLevelInfo,
		" debug ": logging.LogLevelDebug,
		"trace":   logging.LogLevelTrace,
		"off":     logging.LogLevelDisabled,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestSetLevelRejectsUnknown(t *testing.T) {
	assert.Error(t, SetLevel("loud"))
	assert.NoError(t, SetLevel("info"))
}

func TestFactory(t *testing.T) {
	l := Factory().NewLogger("camrec/test")
	require.NotNil(t, l)
	l.Debug("factory logger works")
}
