package driver

import (
	"fmt"
	"testing"

	"github.com/camrec/camrec/pkg/io/video"
	"github.com/camrec/camrec/pkg/prop"
)

var (
	recordErr = fmt.Errorf("failed to start recording")
)

type adapterMock struct{}

func (a *adapterMock) Open() error              { return nil }
func (a *adapterMock) Close() error             { return nil }
func (a *adapterMock) Properties() []prop.Media { return []prop.Media{{}} }

type videoAdapterMock struct{ adapterMock }

func (a *videoAdapterMock) VideoRecord(p prop.Media) (r video.Reader, err error) { return nil, nil }

type videoAdapterBrokenMock struct{ adapterMock }

func (a *videoAdapterBrokenMock) VideoRecord(p prop.Media) (r video.Reader, err error) {
	return nil, recordErr
}

func TestVideoWrapperState(t *testing.T) {
	var a videoAdapterMock
	d := wrapAdapter(&a, Info{})

	if d.Properties() != nil {
		t.Errorf("expected nil, but got %v", d.Properties())
	}

	vr := d.(VideoRecorder)
	_, err := vr.VideoRecord(prop.Media{})
	if err == nil {
		t.Errorf("expected to get an invalid state")
	}

	err = d.Open()
	if err != nil {
		t.Errorf("expected to successfully open, but got %v", err)
	}

	props := d.Properties()
	if len(props) != 1 || props[0].DeviceID != d.ID() {
		t.Errorf("expected properties tagged with %s, got %v", d.ID(), props)
	}

	_, err = vr.VideoRecord(prop.Media{})
	if err != nil {
		t.Errorf("expected to successfully start recording, but got %v", err)
	}
	if d.Status() != StateRunning {
		t.Errorf("expected %s, got %s", StateRunning, d.Status())
	}

	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if d.Status() != StateClosed {
		t.Errorf("expected %s, got %s", StateClosed, d.Status())
	}
}

func TestVideoWrapperWithBrokenRecorderState(t *testing.T) {
	var a videoAdapterBrokenMock
	d := wrapAdapter(&a, Info{})

	err := d.Open()
	if err != nil {
		t.Errorf("expected to open successfully")
	}

	vr := d.(VideoRecorder)
	_, err = vr.VideoRecord(prop.Media{})
	if err == nil {
		t.Errorf("expected to get an error")
	}

	if d.Status() != StateOpened {
		t.Errorf("expected the status to be %s, but got %s", StateOpened, d.Status())
	}
}

func TestWrapNonRecorder(t *testing.T) {
	if d := wrapAdapter(&adapterMock{}, Info{}); d != nil {
		t.Errorf("expected nil for an adapter without VideoRecord, got %v", d)
	}
}
