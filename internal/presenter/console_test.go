package presenter

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/mossy-p/videocall/internal/session"
)

func TestConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.Status("connected as alice", session.StatusOK)
	c.Roster([]string{"bob", "carol"})
	c.CallPanel("bob", true)
	c.CallPanel("", false)
	c.RemoteTrack(session.RemoteTrack{Kind: "audio", StreamID: "s1", Codec: "audio/opus"})
	c.Alert("target user not connected")
	c.Roster(nil)

	want := []string{
		"[ok] connected as alice",
		"online: bob, carol",
		"call with bob",
		"receiving audio from stream s1 (audio/opus)",
		"! target user not connected",
		"online: nobody else",
	}
	got := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("output:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestConsolePeersIsCopy(t *testing.T) {
	c := NewConsole(&bytes.Buffer{})
	c.Roster([]string{"bob"})

	peers := c.Peers()
	peers[0] = "mallory"
	if got := c.Peers(); got[0] != "bob" {
		t.Fatalf("Peers leaked internal slice: %q", got)
	}
}
