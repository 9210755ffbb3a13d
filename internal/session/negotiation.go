package session

import (
	"context"
	"fmt"
	"log"
	"slices"

	"github.com/google/uuid"
	"github.com/mossy-p/videocall/internal/models"
)

func (c *Controller) startCall(ctx context.Context, target string) error {
	switch {
	case c.state == StateDisconnected:
		return ErrNotConnected
	case c.state != StateIdle:
		return ErrBusy
	case target == "" || target == c.self || !slices.Contains(c.roster, target):
		return fmt.Errorf("%w: %q", ErrUnknownPeer, target)
	}

	c.beginCall(target, DirectionOutbound)

	if err := c.openChannel(ctx); err != nil {
		c.abort(err, false)
		return err
	}

	sdp, err := c.channel.CreateOffer(ctx)
	if err != nil {
		err = fmt.Errorf("create offer: %w", err)
		c.abort(err, false)
		return err
	}

	if err := c.send(models.Offer{Name: c.self, Target: target, SDP: sdp}); err != nil {
		c.abort(fmt.Errorf("send offer: %w", err), false)
		return err
	}
	log.Printf("SESSION [%s]: offer sent to %s (call %s)", c.self, target, c.callID)
	return nil
}

// handleOffer accepts an inbound call when idle. While another call is in
// any non-idle state the offer is refused with a hangup and the current
// call is left untouched.
func (c *Controller) handleOffer(ctx context.Context, m models.Offer) {
	if m.Name == "" || m.Name == c.self {
		log.Printf("SESSION [%s]: ignoring offer with sender %q", c.self, m.Name)
		return
	}
	if c.state != StateIdle {
		log.Printf("SESSION [%s]: busy with %s, rejecting offer from %s", c.self, c.target, m.Name)
		c.send(models.Hangup{Name: c.self, Target: m.Name})
		c.presenter.Status("missed call from "+m.Name+" (busy)", StatusInfo)
		return
	}

	c.beginCall(m.Name, DirectionInbound)

	if err := c.openChannel(ctx); err != nil {
		c.abort(err, true)
		return
	}
	if err := c.channel.SetRemoteDescription(DescriptionOffer, m.SDP); err != nil {
		c.abort(fmt.Errorf("apply offer from %s: %w", m.Name, err), true)
		return
	}

	sdp, err := c.channel.CreateAnswer(ctx)
	if err != nil {
		c.abort(fmt.Errorf("create answer: %w", err), true)
		return
	}
	if err := c.send(models.Answer{Name: c.self, Target: m.Name, SDP: sdp}); err != nil {
		c.abort(fmt.Errorf("send answer: %w", err), false)
		return
	}

	c.state = StateNegotiating
	log.Printf("SESSION [%s]: answered %s (call %s)", c.self, m.Name, c.callID)
}

func (c *Controller) handleAnswer(m models.Answer) {
	valid := c.direction == DirectionOutbound &&
		(c.state == StateConnecting || c.state == StateNegotiating) &&
		c.channel != nil && m.Name == c.target
	if !valid {
		log.Printf("SESSION [%s]: ignoring answer from %s in state %s", c.self, m.Name, c.state)
		return
	}

	if err := c.channel.SetRemoteDescription(DescriptionAnswer, m.SDP); err != nil {
		c.abort(fmt.Errorf("apply answer from %s: %w", m.Name, err), true)
		return
	}
	c.state = StateNegotiating
}

// handleCandidate applies a remote candidate whenever a channel exists,
// regardless of state. A null candidate or a missing channel is a no-op.
func (c *Controller) handleCandidate(m models.CandidateMessage) {
	if m.Candidate == nil || c.channel == nil {
		return
	}
	if err := c.channel.AddCandidate(*m.Candidate); err != nil {
		log.Printf("SESSION [%s]: candidate from %s not applied: %v", c.self, m.Name, err)
	}
}

func (c *Controller) handleHangup(m models.Hangup) {
	if c.state == StateIdle || m.Name != c.target {
		return
	}
	log.Printf("SESSION [%s]: %s hung up (call %s)", c.self, m.Name, c.callID)
	c.endCall(false)
	c.presenter.Status(m.Name+" left the call", StatusInfo)
}

func (c *Controller) leave() {
	if c.state == StateIdle || c.state == StateDisconnected {
		return
	}
	log.Printf("SESSION [%s]: leaving call with %s (call %s)", c.self, c.target, c.callID)
	c.endCall(true)
	c.presenter.Status("call ended", StatusInfo)
}

func (c *Controller) beginCall(target string, dir Direction) {
	c.target = target
	c.direction = dir
	c.callID = uuid.New().String()
	c.state = StateConnecting
	c.presenter.CallPanel(target, true)
}

// openChannel acquires local media and creates the negotiation channel.
func (c *Controller) openChannel(ctx context.Context) error {
	stream, err := c.media.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire local media: %w", err)
	}
	c.local = stream
	c.presenter.LocalStream(stream)

	callID := c.callID
	ch, err := c.channels.NewChannel(callID, ChannelHooks{
		OnCandidate: func(cand models.Candidate) {
			c.post(channelEvent{callID: callID, candidate: &cand})
		},
		OnTrack: func(track RemoteTrack) {
			c.post(channelEvent{callID: callID, track: &track})
		},
	})
	if err != nil {
		return fmt.Errorf("create channel: %w", err)
	}
	c.channel = ch

	if err := ch.AddStream(stream); err != nil {
		return fmt.Errorf("add local media: %w", err)
	}
	return nil
}

// post hands a channel event to the loop. It gives up once the loop has stopped.
func (c *Controller) post(ev channelEvent) {
	select {
	case c.events <- ev:
	case <-c.stopped:
	}
}

// abort reports err, optionally tells the peer, and returns to idle.
func (c *Controller) abort(err error, notifyPeer bool) {
	log.Printf("SESSION [%s]: call with %s aborted: %v", c.self, c.target, err)
	c.presenter.Alert(err.Error())
	c.endCall(notifyPeer)
}

// endCall tears down the channel and local media and clears the target.
func (c *Controller) endCall(notifyPeer bool) {
	if c.state == StateIdle {
		return
	}
	if notifyPeer && c.target != "" {
		c.send(models.Hangup{Name: c.self, Target: c.target})
	}

	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			log.Printf("SESSION [%s]: closing channel: %v", c.self, err)
		}
		c.channel = nil
	}
	if c.local != nil {
		c.local.Close()
		c.local = nil
	}

	c.target = ""
	c.callID = ""
	c.direction = DirectionNone
	if c.state != StateDisconnected {
		c.state = StateIdle
	}
	c.presenter.ClearRemote()
	c.presenter.CallPanel("", false)
}
