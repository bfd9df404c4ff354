// Package y4m writes uncompressed YUV4MPEG2 clips with 4:2:0 chroma.
//
// Reference: https://wiki.multimedia.cx/index.php/YUV4MPEG2
package y4m

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"strconv"
	"strings"
)

const (
	magic       = "YUV4MPEG2"
	frameMarker = "FRAME\n"
)

var errFrameSize = errors.New("y4m: frame size differs from stream size")

// Header describes a stream.
type Header struct {
	Width, Height int
	FrameRate     int
}

func (h Header) String() string {
	return fmt.Sprintf("%s W%d H%d F%d:1 Ip A1:1 C420jpeg\n", magic, h.Width, h.Height, h.FrameRate)
}

// FrameSize returns the number of bytes one frame occupies in the file,
// including its marker.
func (h Header) FrameSize() int {
	cw, ch := chromaSize(h.Width, h.Height)
	return len(frameMarker) + h.Width*h.Height + 2*cw*ch
}

func chromaSize(w, h int) (int, int) {
	return (w + 1) / 2, (h + 1) / 2
}

// Writer writes frames to an underlying io.Writer.
type Writer struct {
	w      io.Writer
	header Header
	frames int
	buf    []byte
}

// NewWriter writes the stream header to w.
func NewWriter(w io.Writer, h Header) (*Writer, error) {
	if h.Width <= 0 || h.Height <= 0 || h.FrameRate <= 0 {
		return nil, fmt.Errorf("y4m: invalid header %dx%d@%d", h.Width, h.Height, h.FrameRate)
	}
	if _, err := io.WriteString(w, h.String()); err != nil {
		return nil, err
	}
	return &Writer{
		w:      w,
		header: h,
		buf:    make([]byte, h.FrameSize()),
	}, nil
}

// Frames returns the number of frames written so far.
func (w *Writer) Frames() int {
	return w.frames
}

// Header returns the stream header.
func (w *Writer) Header() Header {
	return w.header
}

// WriteFrame converts img to 4:2:0 and appends it. img must have the
// stream's size.
func (w *Writer) WriteFrame(img image.Image) error {
	b := img.Bounds()
	if b.Dx() != w.header.Width || b.Dy() != w.header.Height {
		return fmt.Errorf("%w: got %dx%d", errFrameSize, b.Dx(), b.Dy())
	}

	n := copy(w.buf, frameMarker)
	planes := w.buf[n:]
	width, height := w.header.Width, w.header.Height
	cw, ch := chromaSize(width, height)
	y := planes[:width*height]
	cb := planes[width*height : width*height+cw*ch]
	cr := planes[width*height+cw*ch:]

	switch src := img.(type) {
	case *image.YCbCr:
		fromYCbCr(src, y, cb, cr, width, height)
	case *image.RGBA:
		fromRGBA(src, y, cb, cr, width, height)
	default:
		fromImage(src, y, cb, cr, width, height)
	}

	if _, err := w.w.Write(w.buf); err != nil {
		return err
	}
	w.frames++
	return nil
}

func fromYCbCr(src *image.YCbCr, y, cb, cr []byte, width, height int) {
	b := src.Rect
	for row := 0; row < height; row++ {
		off := src.YOffset(b.Min.X, b.Min.Y+row)
		copy(y[row*width:(row+1)*width], src.Y[off:off+width])
	}
	cw, ch := chromaSize(width, height)
	for row := 0; row < ch; row++ {
		for col := 0; col < cw; col++ {
			off := src.COffset(b.Min.X+2*col, b.Min.Y+2*row)
			cb[row*cw+col] = src.Cb[off]
			cr[row*cw+col] = src.Cr[off]
		}
	}
}

func fromRGBA(src *image.RGBA, y, cb, cr []byte, width, height int) {
	b := src.Rect
	cw, _ := chromaSize(width, height)
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			i := src.PixOffset(b.Min.X+col, b.Min.Y+row)
			yy, u, v := color.RGBToYCbCr(src.Pix[i], src.Pix[i+1], src.Pix[i+2])
			y[row*width+col] = yy
			if row%2 == 0 && col%2 == 0 {
				cb[(row/2)*cw+col/2] = u
				cr[(row/2)*cw+col/2] = v
			}
		}
	}
}

func fromImage(src image.Image, y, cb, cr []byte, width, height int) {
	b := src.Bounds()
	cw, _ := chromaSize(width, height)
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			c := color.YCbCrModel.Convert(src.At(b.Min.X+col, b.Min.Y+row)).(color.YCbCr)
			y[row*width+col] = c.Y
			if row%2 == 0 && col%2 == 0 {
				cb[(row/2)*cw+col/2] = c.Cb
				cr[(row/2)*cw+col/2] = c.Cr
			}
		}
	}
}

// ReadHeader parses the stream header at the start of r.
func ReadHeader(r io.Reader) (Header, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil {
		return Header{}, fmt.Errorf("y4m: read header: %w", err)
	}

	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != magic {
		return Header{}, errors.New("y4m: not a YUV4MPEG2 stream")
	}

	var h Header
	for _, f := range fields[1:] {
		switch f[0] {
		case 'W':
			h.Width, err = strconv.Atoi(f[1:])
		case 'H':
			h.Height, err = strconv.Atoi(f[1:])
		case 'F':
			num, den, found := strings.Cut(f[1:], ":")
			if !found {
				return Header{}, fmt.Errorf("y4m: bad frame rate %q", f)
			}
			var n, d int
			if n, err = strconv.Atoi(num); err == nil {
				d, err = strconv.Atoi(den)
			}
			if err == nil && d > 0 {
				h.FrameRate = n / d
			}
		}
		if err != nil {
			return Header{}, fmt.Errorf("y4m: bad header field %q: %w", f, err)
		}
	}
	return h, nil
}
