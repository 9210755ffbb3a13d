//go:build linux && cgo

// Package devices captures the local camera and microphone.
package devices

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/mossy-p/videocall/internal/media"
	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/codec/opus"
	"github.com/pion/mediadevices/pkg/codec/vpx"
	_ "github.com/pion/mediadevices/pkg/driver/camera"
	_ "github.com/pion/mediadevices/pkg/driver/microphone"
	"github.com/pion/mediadevices/pkg/frame"
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/pion/webrtc/v4"
)

// deviceSource captures the local camera and microphone with pion/mediadevices
// (V4L2 + malgo) and encodes them as VP8 + Opus.
type deviceSource struct {
	codecs *mediadevices.CodecSelector
}

func NewSource() (media.Source, error) {
	vpxParams, err := vpx.NewVP8Params()
	if err != nil {
		return nil, fmt.Errorf("vp8 encoder: %w", err)
	}
	vpxParams.BitRate = 1_000_000

	opusParams, err := opus.NewParams()
	if err != nil {
		return nil, fmt.Errorf("opus encoder: %w", err)
	}

	return &deviceSource{
		codecs: mediadevices.NewCodecSelector(
			mediadevices.WithVideoEncoders(&vpxParams),
			mediadevices.WithAudioEncoders(&opusParams),
		),
	}, nil
}

func (s *deviceSource) RegisterCodecs(m *webrtc.MediaEngine) error {
	s.codecs.Populate(m)
	return nil
}

// Acquire tries video+audio, then video-only, then audio-only, so a busy
// microphone does not cost the camera and vice versa.
func (s *deviceSource) Acquire(ctx context.Context) (media.Stream, error) {
	if len(mediadevices.EnumerateDevices()) == 0 {
		return nil, media.ErrNoDevice
	}

	type attempt struct {
		video bool
		audio bool
		label string
	}
	var lastErr error
	for _, a := range []attempt{
		{true, true, "video+audio"},
		{true, false, "video-only"},
		{false, true, "audio-only"},
	} {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		constraints := mediadevices.MediaStreamConstraints{Codec: s.codecs}
		if a.video {
			constraints.Video = func(c *mediadevices.MediaTrackConstraints) {
				// Raw formats only; some MJPEG nodes yield frames the VP8 encoder rejects.
				c.FrameFormat = prop.FrameFormatOneOf{
					frame.FormatYUYV,
					frame.FormatI420,
					frame.FormatI444,
					frame.FormatRGBA,
				}
				c.Width = prop.IntRanged{Max: 640}
				c.Height = prop.IntRanged{Max: 480}
			}
		}
		if a.audio {
			constraints.Audio = func(_ *mediadevices.MediaTrackConstraints) {}
		}

		ms, err := mediadevices.GetUserMedia(constraints)
		if err != nil {
			log.Printf("MEDIA: GetUserMedia (%s) failed: %v", a.label, err)
			lastErr = err
			continue
		}

		tracks := ms.GetTracks()
		log.Printf("MEDIA: captured %s, %d tracks", a.label, len(tracks))
		return &deviceStream{id: "local-" + uuid.NewString(), tracks: tracks}, nil
	}

	return nil, fmt.Errorf("%w: %v", media.ErrNoDevice, lastErr)
}

type deviceStream struct {
	id     string
	tracks []mediadevices.Track
}

func (s *deviceStream) ID() string { return s.id }

func (s *deviceStream) Tracks() []webrtc.TrackLocal {
	out := make([]webrtc.TrackLocal, 0, len(s.tracks))
	for _, t := range s.tracks {
		out = append(out, t)
	}
	return out
}

func (s *deviceStream) Close() error {
	for _, t := range s.tracks {
		t.Close()
	}
	return nil
}
