// Package presenter renders session output for a terminal.
package presenter

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/mossy-p/videocall/internal/media"
	"github.com/mossy-p/videocall/internal/session"
)

// Console writes one line per presentation event. It is safe for use from
// the controller loop and a reading goroutine at the same time.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	roster []string
}

func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

func (c *Console) Status(text string, level session.StatusLevel) {
	c.printf("[%s] %s", levelTag(level), text)
}

func (c *Console) Roster(peers []string) {
	c.mu.Lock()
	c.roster = slices.Clone(peers)
	c.mu.Unlock()

	if len(peers) == 0 {
		c.printf("online: nobody else")
		return
	}
	c.printf("online: %s", strings.Join(peers, ", "))
}

func (c *Console) CallPanel(target string, visible bool) {
	if visible {
		c.printf("call with %s", target)
	}
}

func (c *Console) LocalStream(stream media.Stream) {
	c.printf("local media %s (%d tracks)", stream.ID(), len(stream.Tracks()))
}

func (c *Console) RemoteTrack(track session.RemoteTrack) {
	c.printf("receiving %s from stream %s (%s)", track.Kind, track.StreamID, track.Codec)
}

func (c *Console) ClearRemote() {}

func (c *Console) Alert(message string) {
	c.printf("! %s", message)
}

// Peers returns the last roster shown.
func (c *Console) Peers() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.roster)
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format+"\n", args...)
}

func levelTag(level session.StatusLevel) string {
	switch level {
	case session.StatusOK:
		return "ok"
	case session.StatusError:
		return "error"
	}
	return "info"
}
