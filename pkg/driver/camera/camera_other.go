//go:build !linux

package camera

import (
	"context"

	"github.com/camrec/camrec/pkg/driver/availability"
)

// Watch is only implemented on Linux.
func Watch(ctx context.Context) error {
	return availability.ErrUnimplemented
}
