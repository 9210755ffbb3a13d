package rtc

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media/ivfwriter"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
)

type rtpWriter interface {
	WriteRTP(pkt *rtp.Packet) error
	Close() error
}

// consume reads a remote track until it ends, writing it to disk when a
// record directory is configured.
func (c *Channel) consume(track *webrtc.TrackRemote) {
	w, err := c.openRecorder(track)
	if err != nil {
		log.Printf("RTC [%s]: not recording track %s: %v", c.callID, track.ID(), err)
	}
	if w != nil {
		defer w.Close()
	}

	for {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			return
		}
		if w == nil {
			continue
		}
		if err := w.WriteRTP(pkt); err != nil {
			log.Printf("RTC [%s]: recording track %s stopped: %v", c.callID, track.ID(), err)
			w.Close()
			w = nil
		}
	}
}

func (c *Channel) openRecorder(track *webrtc.TrackRemote) (rtpWriter, error) {
	if c.recordDir == "" {
		return nil, nil
	}
	path := recordingPath(c.recordDir, c.callID, track.ID(), track.Codec().MimeType)
	if path == "" {
		return nil, fmt.Errorf("codec %s not recordable", track.Codec().MimeType)
	}
	if err := os.MkdirAll(c.recordDir, 0o755); err != nil {
		return nil, err
	}

	if strings.EqualFold(track.Codec().MimeType, webrtc.MimeTypeOpus) {
		w, err := oggwriter.New(path, track.Codec().ClockRate, track.Codec().Channels)
		if err != nil {
			return nil, err
		}
		return w, nil
	}
	w, err := ivfwriter.New(path)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// recordingPath returns <dir>/<callID>-<trackID>.ivf for VP8 and .ogg for
// Opus, or "" for anything else.
func recordingPath(dir, callID, trackID, mimeType string) string {
	var ext string
	switch {
	case strings.EqualFold(mimeType, webrtc.MimeTypeVP8):
		ext = ".ivf"
	case strings.EqualFold(mimeType, webrtc.MimeTypeOpus):
		ext = ".ogg"
	default:
		return ""
	}
	name := callID + "-" + strings.NewReplacer("/", "_", string(filepath.Separator), "_").Replace(trackID) + ext
	return filepath.Join(dir, name)
}
