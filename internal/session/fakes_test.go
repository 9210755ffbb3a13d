package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/mossy-p/videocall/internal/media"
	"github.com/mossy-p/videocall/internal/models"
	"github.com/pion/webrtc/v4"
)

type fakeTransport struct {
	in chan models.Message

	mu   sync.Mutex
	sent []models.Message
	err  error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{in: make(chan models.Message, 16)}
}

func (f *fakeTransport) Send(msg models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeTransport) Messages() <-chan models.Message { return f.in }

func (f *fakeTransport) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeTransport) closeWith(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
	close(f.in)
}

func (f *fakeTransport) sentOf(typ models.MessageType) []models.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Message
	for _, m := range f.sent {
		if m.Type() == typ {
			out = append(out, m)
		}
	}
	return out
}

type fakeChannel struct {
	callID string
	hooks  ChannelHooks

	mu         sync.Mutex
	streams    int
	remote     []DescriptionKind
	attempts   int
	candidates []models.Candidate
	closed     bool
}

func (f *fakeChannel) AddStream(media.Stream) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.streams++
	return nil
}

func (f *fakeChannel) CreateOffer(context.Context) (string, error) {
	return "v=0 offer " + f.callID, nil
}

func (f *fakeChannel) CreateAnswer(context.Context) (string, error) {
	return "v=0 answer " + f.callID, nil
}

func (f *fakeChannel) SetRemoteDescription(kind DescriptionKind, sdp string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sdp == "" {
		return errors.New("empty description")
	}
	f.remote = append(f.remote, kind)
	return nil
}

// AddCandidate rejects a candidate it has already seen, like a real ICE agent would.
func (f *fakeChannel) AddCandidate(c models.Candidate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	for _, seen := range f.candidates {
		if seen.Candidate == c.Candidate {
			return fmt.Errorf("duplicate candidate %q", c.Candidate)
		}
	}
	f.candidates = append(f.candidates, c)
	return nil
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeChannel) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeChannel) candidateAttempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

func (f *fakeChannel) remoteKinds() []DescriptionKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.remote)
}

type fakeFactory struct {
	mu       sync.Mutex
	channels []*fakeChannel
}

func (f *fakeFactory) NewChannel(callID string, hooks ChannelHooks) (Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := &fakeChannel{callID: callID, hooks: hooks}
	f.channels = append(f.channels, ch)
	return ch, nil
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.channels)
}

func (f *fakeFactory) last() *fakeChannel {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.channels) == 0 {
		return nil
	}
	return f.channels[len(f.channels)-1]
}

type fakeStream struct {
	mu     sync.Mutex
	closed bool
}

func (s *fakeStream) ID() string                  { return "fake-stream" }
func (s *fakeStream) Tracks() []webrtc.TrackLocal { return nil }
func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type fakeMedia struct {
	err error

	mu      sync.Mutex
	streams []*fakeStream
}

func (f *fakeMedia) Acquire(context.Context) (media.Stream, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &fakeStream{}
	f.streams = append(f.streams, s)
	return s, nil
}

type fakePresenter struct {
	mu       sync.Mutex
	statuses []string
	rosters  [][]string
	panel    string
	alerts   []string
	tracks   []RemoteTrack
	cleared  int
	locals   int
}

func (p *fakePresenter) Status(text string, _ StatusLevel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses = append(p.statuses, text)
}

func (p *fakePresenter) Roster(peers []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rosters = append(p.rosters, slices.Clone(peers))
}

func (p *fakePresenter) CallPanel(target string, visible bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if visible {
		p.panel = target
	} else {
		p.panel = ""
	}
}

func (p *fakePresenter) LocalStream(media.Stream) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.locals++
}

func (p *fakePresenter) RemoteTrack(track RemoteTrack) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tracks = append(p.tracks, track)
}

func (p *fakePresenter) ClearRemote() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cleared++
}

func (p *fakePresenter) Alert(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, message)
}

func (p *fakePresenter) lastStatus() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.statuses) == 0 {
		return ""
	}
	return p.statuses[len(p.statuses)-1]
}

func (p *fakePresenter) lastRoster() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.rosters) == 0 {
		return nil
	}
	return slices.Clone(p.rosters[len(p.rosters)-1])
}

func (p *fakePresenter) alertCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.alerts)
}

type harness struct {
	t       *testing.T
	c       *Controller
	tr      *fakeTransport
	factory *fakeFactory
	media   *fakeMedia
	pres    *fakePresenter
	runErr  chan error
	cancel  context.CancelFunc
	marker  int
}

func newHarness(t *testing.T, mediaErr error) *harness {
	t.Helper()
	h := &harness{
		t:       t,
		tr:      newFakeTransport(),
		factory: &fakeFactory{},
		media:   &fakeMedia{err: mediaErr},
		pres:    &fakePresenter{},
		runErr:  make(chan error, 1),
	}
	h.c = New(Options{
		Identity:  "alice",
		Transport: h.tr,
		Channels:  h.factory,
		Media:     h.media,
		Presenter: h.pres,
	})

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.runErr <- h.c.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-h.c.Stopped()
	})
	return h
}

// online delivers a roster with alice, bob and carol and waits for it.
func (h *harness) online() {
	h.t.Helper()
	h.deliver(models.UserList{Users: []string{"alice", "bob", "carol"}})
	h.eventually("roster applied", func() bool {
		return len(h.c.Snapshot().Peers) == 2
	})
}

func (h *harness) deliver(msg models.Message) {
	h.tr.in <- msg
}

// barrier returns once every message delivered before it has been handled.
// The relay stream is FIFO, so a roster update carrying a fresh marker name
// works as a fence.
func (h *harness) barrier() {
	h.t.Helper()
	h.marker++
	marker := fmt.Sprintf("marker-%d", h.marker)
	h.deliver(models.UserList{Users: []string{"alice", "bob", "carol", marker}})
	h.eventually("barrier "+marker, func() bool {
		return slices.Contains(h.c.Snapshot().Peers, marker)
	})
}

func (h *harness) eventually(what string, cond func() bool) {
	h.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	h.t.Fatalf("timeout waiting for %s", what)
}
