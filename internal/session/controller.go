// Package session runs the call state machine for one logged-in user: it
// reacts to relay messages, drives a single peer negotiation channel and
// reports everything to a Presenter.
package session

import (
	"context"
	"fmt"
	"log"
	"slices"
	"sync"

	"github.com/mossy-p/videocall/internal/media"
	"github.com/mossy-p/videocall/internal/models"
)

// Options wires a Controller to its collaborators.
type Options struct {
	Identity  string
	Transport Transport
	Channels  ChannelFactory
	Media     media.Source
	Presenter Presenter
}

// Controller owns the relay connection and at most one negotiation channel.
// All state below the loop-owned marker is touched only by Run's goroutine.
type Controller struct {
	self      string
	transport Transport
	channels  ChannelFactory
	media     media.Source
	presenter Presenter

	commands chan command
	events   chan channelEvent
	stopped  chan struct{}
	runOnce  sync.Once

	snapMu sync.RWMutex
	snap   Snapshot

	// loop-owned
	state     State
	direction Direction
	target    string
	callID    string
	channel   Channel
	local     media.Stream
	roster    []string
}

type command struct {
	run   func(ctx context.Context) error
	reply chan error
}

// channelEvent is something a channel reported from its own goroutine.
// Exactly one of candidate or track is set.
type channelEvent struct {
	callID    string
	candidate *models.Candidate
	track     *RemoteTrack
}

func New(opts Options) *Controller {
	c := &Controller{
		self:      opts.Identity,
		transport: opts.Transport,
		channels:  opts.Channels,
		media:     opts.Media,
		presenter: opts.Presenter,
		commands:  make(chan command),
		events:    make(chan channelEvent, 64),
		stopped:   make(chan struct{}),
	}
	c.publish()
	return c
}

// Run is the dispatch loop. It returns when ctx is cancelled or the relay
// connection ends; the controller cannot be restarted afterwards.
func (c *Controller) Run(ctx context.Context) error {
	started := false
	c.runOnce.Do(func() { started = true })
	if !started {
		return fmt.Errorf("session: Run called twice")
	}
	defer close(c.stopped)

	msgs := c.transport.Messages()
	for {
		select {
		case <-ctx.Done():
			c.endCall(true)
			c.publish()
			return ctx.Err()

		case msg, ok := <-msgs:
			if !ok {
				c.disconnect()
				c.publish()
				return c.transport.Err()
			}
			c.handleMessage(ctx, msg)

		case ev := <-c.events:
			c.handleEvent(ev)

		case cmd := <-c.commands:
			cmd.reply <- cmd.run(ctx)
		}
		c.publish()
	}
}

// StartCall places an outbound call to target. It returns once the offer
// has been sent or the attempt failed.
func (c *Controller) StartCall(ctx context.Context, target string) error {
	return c.do(ctx, func(loopCtx context.Context) error {
		return c.startCall(loopCtx, target)
	})
}

// Leave hangs up the current call, if any.
func (c *Controller) Leave(ctx context.Context) error {
	return c.do(ctx, func(context.Context) error {
		c.leave()
		return nil
	})
}

// Snapshot returns the state as of the last completed loop step.
func (c *Controller) Snapshot() Snapshot {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()
	s := c.snap
	s.Peers = slices.Clone(c.snap.Peers)
	return s
}

// Stopped is closed when Run has returned.
func (c *Controller) Stopped() <-chan struct{} { return c.stopped }

func (c *Controller) do(ctx context.Context, fn func(context.Context) error) error {
	cmd := command{run: fn, reply: make(chan error, 1)}
	select {
	case c.commands <- cmd:
	case <-c.stopped:
		return c.stoppedErr()
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-cmd.reply:
		return err
	case <-c.stopped:
		return c.stoppedErr()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// stoppedErr distinguishes a lost relay connection from a cancelled loop.
func (c *Controller) stoppedErr() error {
	if c.Snapshot().State == StateDisconnected {
		return ErrNotConnected
	}
	return ErrStopped
}

func (c *Controller) publish() {
	c.snapMu.Lock()
	c.snap = Snapshot{
		Identity:  c.self,
		State:     c.state,
		Direction: c.direction,
		Target:    c.target,
		CallID:    c.callID,
		Peers:     c.peers(),
	}
	c.snapMu.Unlock()
}

// peers is the roster projection shown to the user: everyone but us.
func (c *Controller) peers() []string {
	out := make([]string, 0, len(c.roster))
	for _, name := range c.roster {
		if name != c.self {
			out = append(out, name)
		}
	}
	return out
}

func (c *Controller) send(msg models.Message) error {
	if err := c.transport.Send(msg); err != nil {
		log.Printf("SESSION [%s]: send %s failed: %v", c.self, msg.Type(), err)
		return err
	}
	return nil
}

func (c *Controller) handleMessage(ctx context.Context, msg models.Message) {
	switch m := msg.(type) {
	case models.Login:
		if m.Success {
			c.presenter.Status("connected as "+c.self, StatusOK)
		}
	case models.UserList:
		c.roster = slices.Clone(m.Users)
		c.presenter.Roster(c.peers())
	case models.Offer:
		c.handleOffer(ctx, m)
	case models.Answer:
		c.handleAnswer(m)
	case models.CandidateMessage:
		c.handleCandidate(m)
	case models.Hangup:
		c.handleHangup(m)
	case models.Error:
		c.presenter.Alert(m.Message)
	case models.Unknown:
		log.Printf("SESSION [%s]: ignoring unknown message type %q", c.self, m.Tag)
	default:
		log.Printf("SESSION [%s]: ignoring %s", c.self, msg.Type())
	}
}

func (c *Controller) handleEvent(ev channelEvent) {
	if ev.callID == "" || ev.callID != c.callID || c.channel == nil {
		return
	}

	switch {
	case ev.candidate != nil:
		c.send(models.CandidateMessage{Name: c.self, Target: c.target, Candidate: ev.candidate})
	case ev.track != nil:
		if c.state != StateActive {
			c.state = StateActive
			c.presenter.Status("in call with "+c.target, StatusOK)
		}
		c.presenter.RemoteTrack(*ev.track)
	}
}

func (c *Controller) disconnect() {
	c.endCall(false)
	c.state = StateDisconnected
	c.presenter.Status("connection lost", StatusError)
	log.Printf("SESSION [%s]: relay connection ended: %v", c.self, c.transport.Err())
}
