package frame

import "fmt"

// Size returns the number of bytes one raw frame of format f occupies.
// Compressed formats have no fixed size and return an error.
func Size(f Format, width, height int) (int, error) {
	yi := width * height
	switch f {
	case FormatI420, FormatNV12, FormatNV21:
		return yi + yi/2, nil
	case FormatYUY2, FormatUYVY:
		return 2 * yi, nil
	default:
		return 0, fmt.Errorf("frame size of %s is not fixed", f)
	}
}
