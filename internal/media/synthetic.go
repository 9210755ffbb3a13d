package media

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
)

const silenceInterval = 20 * time.Millisecond

// opusSilence is a single 20ms Opus frame of digital silence.
var opusSilence = []byte{0xf8, 0xff, 0xfe}

// SyntheticSource produces a VP8 video track that never emits frames and an
// Opus audio track that emits silence, for headless clients and tests.
type SyntheticSource struct{}

func (SyntheticSource) Acquire(ctx context.Context) (Stream, error) {
	id := "synthetic-" + uuid.NewString()

	video, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}, "video", id)
	if err != nil {
		return nil, err
	}
	audio, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus}, "audio", id)
	if err != nil {
		return nil, err
	}

	s := &syntheticStream{
		id:    id,
		video: video,
		audio: audio,
		done:  make(chan struct{}),
	}
	go s.pumpSilence()
	return s, nil
}

type syntheticStream struct {
	id    string
	video *webrtc.TrackLocalStaticSample
	audio *webrtc.TrackLocalStaticSample

	done      chan struct{}
	closeOnce sync.Once
}

func (s *syntheticStream) ID() string { return s.id }

func (s *syntheticStream) Tracks() []webrtc.TrackLocal {
	return []webrtc.TrackLocal{s.video, s.audio}
}

func (s *syntheticStream) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

func (s *syntheticStream) pumpSilence() {
	ticker := time.NewTicker(silenceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			// Unbound tracks drop samples, so this is harmless before negotiation.
			_ = s.audio.WriteSample(pionmedia.Sample{Data: opusSilence, Duration: silenceInterval})
		}
	}
}
