//go:build !linux || !cgo

package devices

import (
	"context"
	"fmt"

	"github.com/mossy-p/videocall/internal/media"
)

// Camera and microphone capture needs the V4L2/malgo drivers, which are
// only built on Linux with cgo.
type deviceSource struct{}

func NewSource() (media.Source, error) {
	return deviceSource{}, nil
}

func (deviceSource) Acquire(context.Context) (media.Stream, error) {
	return nil, fmt.Errorf("%w: device capture not supported in this build", media.ErrNoDevice)
}
