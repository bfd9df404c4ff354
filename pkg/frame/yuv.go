package frame

import (
	"fmt"
	"image"
)

func decodeI420(frame []byte, width, height int) (image.Image, error) {
	yi := width * height
	cbi := yi + width*height/4
	cri := cbi + width*height/4

	if cri > len(frame) {
		return nil, fmt.Errorf("frame length (%d) less than expected (%d)", len(frame), cri)
	}

	return &image.YCbCr{
		Y:              frame[:yi],
		YStride:        width,
		Cb:             frame[yi:cbi],
		Cr:             frame[cbi:cri],
		CStride:        width / 2,
		SubsampleRatio: image.YCbCrSubsampleRatio420,
		Rect:           image.Rect(0, 0, width, height),
	}, nil
}

func decodeNV21(frame []byte, width, height int) (image.Image, error) {
	return decodeSemiPlanar(frame, width, height, true)
}

func decodeNV12(frame []byte, width, height int) (image.Image, error) {
	return decodeSemiPlanar(frame, width, height, false)
}

// decodeSemiPlanar splits the interleaved chroma plane of NV12 (CbCr) or
// NV21 (CrCb) into separate planes.
func decodeSemiPlanar(frame []byte, width, height int, crFirst bool) (image.Image, error) {
	yi := width * height
	ci := yi + width*height/2

	if ci > len(frame) {
		return nil, fmt.Errorf("frame length (%d) less than expected (%d)", len(frame), ci)
	}

	n := (ci - yi) / 2
	cb := make([]byte, n)
	cr := make([]byte, n)
	for i, j := yi, 0; j < n; i, j = i+2, j+1 {
		if crFirst {
			cr[j], cb[j] = frame[i], frame[i+1]
		} else {
			cb[j], cr[j] = frame[i], frame[i+1]
		}
	}

	return &image.YCbCr{
		Y:              frame[:yi],
		YStride:        width,
		Cb:             cb,
		Cr:             cr,
		CStride:        width / 2,
		SubsampleRatio: image.YCbCrSubsampleRatio420,
		Rect:           image.Rect(0, 0, width, height),
	}, nil
}

func decodeYUY2(frame []byte, width, height int) (image.Image, error) {
	return decodePacked422(frame, width, height, 0, 1, 3)
}

func decodeUYVY(frame []byte, width, height int) (image.Image, error) {
	return decodePacked422(frame, width, height, 1, 0, 2)
}

// decodePacked422 unpacks 4:2:2 macropixels. y0 is the offset of the first
// luma sample inside the 4 byte macropixel; the second one sits 2 bytes later.
func decodePacked422(frame []byte, width, height, y0, cbOff, crOff int) (image.Image, error) {
	yi := width * height
	ci := yi / 2
	fi := yi + 2*ci

	if len(frame) != fi {
		return nil, fmt.Errorf("frame length (%d) less than expected (%d)", len(frame), fi)
	}

	y := make([]byte, yi)
	cb := make([]byte, ci)
	cr := make([]byte, ci)

	fast := 0
	slow := 0
	for i := 0; i < fi; i += 4 {
		y[fast] = frame[i+y0]
		cb[slow] = frame[i+cbOff]
		y[fast+1] = frame[i+y0+2]
		cr[slow] = frame[i+crOff]
		fast += 2
		slow++
	}

	return &image.YCbCr{
		Y:              y,
		YStride:        width,
		Cb:             cb,
		Cr:             cr,
		CStride:        width / 2,
		SubsampleRatio: image.YCbCrSubsampleRatio422,
		Rect:           image.Rect(0, 0, width, height),
	}, nil
}
