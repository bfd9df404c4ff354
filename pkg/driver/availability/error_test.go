package availability

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsError(t *testing.T) {
	if !IsError(ErrBusy) {
		t.Error("ErrBusy must be an availability error")
	}
	if !IsError(fmt.Errorf("open /dev/video0: %w", ErrNoDevice)) {
		t.Error("wrapped ErrNoDevice must be an availability error")
	}
	if IsError(errors.New("short frame")) {
		t.Error("plain errors must not be availability errors")
	}
}
