package video

import (
	"image"

	"golang.org/x/image/draw"
)

// Scaler represents scaling algorithm
type Scaler draw.Scaler

// List of scaling algorithms
var (
	ScalerNearestNeighbor = Scaler(draw.NearestNeighbor)
	ScalerApproxBiLinear  = Scaler(draw.ApproxBiLinear)
	ScalerBiLinear        = Scaler(draw.BiLinear)
)

// Scale returns a transform that resizes every frame to width x height.
// Frames that already have the requested size are passed through.
// scaler=nil selects ScalerNearestNeighbor.
func Scale(width, height int, scaler Scaler) TransformFunc {
	if scaler == nil {
		scaler = ScalerNearestNeighbor
	}
	rect := image.Rect(0, 0, width, height)

	return func(r Reader) Reader {
		var dst *image.RGBA
		return ReaderFunc(func() (image.Image, error) {
			img, err := r.Read()
			if err != nil {
				return nil, err
			}
			if img.Bounds().Size() == rect.Size() {
				return img, nil
			}
			if dst == nil {
				dst = image.NewRGBA(rect)
			}
			scaler.Scale(dst, rect, img, img.Bounds(), draw.Src, nil)
			return dst, nil
		})
	}
}
