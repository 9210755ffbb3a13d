package rtc

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/mossy-p/videocall/internal/media"
	"github.com/mossy-p/videocall/internal/models"
	"github.com/mossy-p/videocall/internal/session"
	"github.com/pion/webrtc/v4"
)

var errEmptyCandidate = errors.New("empty candidate")

// Channel is a session.Channel backed by one PeerConnection. Remote
// candidates that arrive before the remote description are held back and
// applied once it is set.
type Channel struct {
	callID    string
	pc        *webrtc.PeerConnection
	hooks     session.ChannelHooks
	recordDir string

	mu      sync.Mutex
	pending []webrtc.ICECandidateInit
	remote  bool
	closed  bool
	readers sync.WaitGroup
}

func (c *Channel) AddStream(stream media.Stream) error {
	for _, track := range stream.Tracks() {
		sender, err := c.pc.AddTrack(track)
		if err != nil {
			return fmt.Errorf("add %s track: %w", track.Kind(), err)
		}
		// RTCP has to be read for the interceptors to run.
		go func() {
			buf := make([]byte, 1500)
			for {
				if _, _, err := sender.Read(buf); err != nil {
					return
				}
			}
		}()
	}
	return nil
}

func (c *Channel) CreateOffer(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return "", err
	}
	if err := c.pc.SetLocalDescription(offer); err != nil {
		return "", fmt.Errorf("set local offer: %w", err)
	}
	return offer.SDP, nil
}

func (c *Channel) CreateAnswer(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return "", err
	}
	if err := c.pc.SetLocalDescription(answer); err != nil {
		return "", fmt.Errorf("set local answer: %w", err)
	}
	return answer.SDP, nil
}

func (c *Channel) SetRemoteDescription(kind session.DescriptionKind, sdp string) error {
	var typ webrtc.SDPType
	switch kind {
	case session.DescriptionOffer:
		typ = webrtc.SDPTypeOffer
	case session.DescriptionAnswer:
		typ = webrtc.SDPTypeAnswer
	default:
		return fmt.Errorf("unsupported description kind %q", kind)
	}
	if err := c.pc.SetRemoteDescription(webrtc.SessionDescription{Type: typ, SDP: sdp}); err != nil {
		return err
	}

	c.mu.Lock()
	c.remote = true
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	for _, init := range pending {
		if err := c.pc.AddICECandidate(init); err != nil {
			log.Printf("RTC [%s]: queued candidate rejected: %v", c.callID, err)
		}
	}
	return nil
}

func (c *Channel) AddCandidate(cand models.Candidate) error {
	if cand.Candidate == "" {
		return errEmptyCandidate
	}
	init := toCandidateInit(cand)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return webrtc.ErrConnectionClosed
	}
	if !c.remote {
		c.pending = append(c.pending, init)
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	return c.pc.AddICECandidate(init)
}

// Close shuts the PeerConnection and waits for remote track readers.
// Calling it again is a no-op.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.pending = nil
	c.mu.Unlock()

	err := c.pc.Close()
	c.readers.Wait()
	return err
}

func (c *Channel) onICECandidate(cand *webrtc.ICECandidate) {
	if cand == nil {
		return
	}
	if c.hooks.OnCandidate != nil {
		c.hooks.OnCandidate(fromCandidateInit(cand.ToJSON()))
	}
}

func (c *Channel) onTrack(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
	log.Printf("RTC [%s]: remote %s track %s (%s)", c.callID, track.Kind(), track.ID(), track.Codec().MimeType)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.readers.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.readers.Done()
		c.consume(track)
	}()

	if c.hooks.OnTrack != nil {
		c.hooks.OnTrack(session.RemoteTrack{
			ID:       track.ID(),
			StreamID: track.StreamID(),
			Kind:     track.Kind().String(),
			Codec:    track.Codec().MimeType,
		})
	}
}
