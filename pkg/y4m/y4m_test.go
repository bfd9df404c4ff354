package y4m

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterLayout(t *testing.T) {
	var buf bytes.Buffer
	h := Header{Width: 4, Height: 2, FrameRate: 30}
	w, err := NewWriter(&buf, h)
	require.NoError(t, err)

	img := image.NewYCbCr(image.Rect(0, 0, 4, 2), image.YCbCrSubsampleRatio422)
	for i := range img.Y {
		img.Y[i] = byte(i + 1)
	}
	for i := range img.Cb {
		img.Cb[i] = byte(0x80 + i)
		img.Cr[i] = byte(0x40 + i)
	}
	require.NoError(t, w.WriteFrame(img))
	require.NoError(t, w.WriteFrame(img))
	assert.Equal(t, 2, w.Frames())

	header := "YUV4MPEG2 W4 H2 F30:1 Ip A1:1 C420jpeg\n"
	assert.Equal(t, len(header)+2*h.FrameSize(), buf.Len())

	out := buf.Bytes()[len(header):]
	assert.Equal(t, "FRAME\n", string(out[:6]))
	planes := out[6:h.FrameSize()]
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, planes[:8])
	// 4:2:2 rows 0 carry chroma 0 and 1; 4:2:0 keeps the first row only.
	assert.Equal(t, []byte{0x80, 0x81}, planes[8:10])
	assert.Equal(t, []byte{0x40, 0x41}, planes[10:12])
}

func TestWriterRGBA(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, Header{Width: 2, Height: 2, FrameRate: 1})
	require.NoError(t, err)

	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for x := 0; x < 2; x++ {
		for y := 0; y < 2; y++ {
			img.Set(x, y, color.White)
		}
	}
	require.NoError(t, w.WriteFrame(img))

	h, err := ReadHeader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	planes := buf.Bytes()[len(h.String())+len(frameMarker):]
	assert.Equal(t, []byte{255, 255, 255, 255}, planes[:4])
}

func TestWriterGenericImage(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, Header{Width: 3, Height: 3, FrameRate: 25})
	require.NoError(t, err)
	require.NoError(t, w.WriteFrame(image.NewGray(image.Rect(0, 0, 3, 3))))

	// Odd sizes round the chroma planes up.
	assert.Equal(t, len(frameMarker)+9+2*4, w.Header().FrameSize())
}

func TestWriterRejectsWrongSize(t *testing.T) {
	w, err := NewWriter(&bytes.Buffer{}, Header{Width: 4, Height: 4, FrameRate: 30})
	require.NoError(t, err)
	assert.ErrorIs(t, w.WriteFrame(image.NewRGBA(image.Rect(0, 0, 2, 2))), errFrameSize)
	assert.Zero(t, w.Frames())
}

func TestNewWriterInvalidHeader(t *testing.T) {
	_, err := NewWriter(&bytes.Buffer{}, Header{Width: 4, Height: 4})
	assert.Error(t, err)
}

func TestReadHeader(t *testing.T) {
	h, err := ReadHeader(bytes.NewBufferString("YUV4MPEG2 W1920 H1080 F30:1 Ip A1:1 C420jpeg\nFRAME\n"))
	require.NoError(t, err)
	assert.Equal(t, Header{Width: 1920, Height: 1080, FrameRate: 30}, h)

	_, err = ReadHeader(bytes.NewBufferString("RIFF....\n"))
	assert.Error(t, err)

	_, err = ReadHeader(bytes.NewBufferString("YUV4MPEG2 Wabc\n"))
	assert.Error(t, err)
}
