// Package media acquires the local camera/microphone tracks for a call.
package media

import (
	"context"
	"errors"
	"fmt"

	"github.com/pion/webrtc/v4"
)

var ErrNoDevice = errors.New("no camera or microphone available")

// Stream is a set of local tracks acquired together.
type Stream interface {
	ID() string
	Tracks() []webrtc.TrackLocal
	Close() error
}

// Source acquires a fresh Stream for each call.
type Source interface {
	Acquire(ctx context.Context) (Stream, error)
}

// CodecRegistrar is implemented by sources whose encoders need their own
// codecs registered on the media engine instead of pion's defaults.
type CodecRegistrar interface {
	RegisterCodecs(m *webrtc.MediaEngine) error
}

const (
	KindDevices   = "devices"
	KindSynthetic = "synthetic"
	KindNone      = "none"
)

// NewSource returns the Source named by kind. Device capture lives in the
// devices subpackage because it needs cgo.
func NewSource(kind string) (Source, error) {
	switch kind {
	case KindSynthetic:
		return SyntheticSource{}, nil
	case KindNone:
		return noneSource{}, nil
	default:
		return nil, fmt.Errorf("unknown media source %q", kind)
	}
}

type noneSource struct{}

func (noneSource) Acquire(context.Context) (Stream, error) {
	return nil, ErrNoDevice
}
