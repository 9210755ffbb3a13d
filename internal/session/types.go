package session

import (
	"context"
	"errors"

	"github.com/mossy-p/videocall/internal/media"
	"github.com/mossy-p/videocall/internal/models"
)

var (
	ErrNotConnected = errors.New("not connected to the relay")
	ErrBusy         = errors.New("a call is already in progress")
	ErrUnknownPeer  = errors.New("peer is not online")
	ErrStopped      = errors.New("session controller stopped")
)

// State is the negotiation state of the controller.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateNegotiating
	StateActive
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateNegotiating:
		return "negotiating"
	case StateActive:
		return "active"
	case StateDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// Direction says which side started the current call.
type Direction int

const (
	DirectionNone Direction = iota
	DirectionOutbound
	DirectionInbound
)

func (d Direction) String() string {
	switch d {
	case DirectionOutbound:
		return "outbound"
	case DirectionInbound:
		return "inbound"
	}
	return "none"
}

// Transport is the relay connection the controller reads from and writes to.
type Transport interface {
	Send(msg models.Message) error
	Messages() <-chan models.Message
	Err() error
}

// DescriptionKind distinguishes offer and answer session descriptions.
type DescriptionKind string

const (
	DescriptionOffer  DescriptionKind = "offer"
	DescriptionAnswer DescriptionKind = "answer"
)

// Channel is one peer-to-peer negotiation channel. CreateOffer and
// CreateAnswer also install the result as the local description.
type Channel interface {
	AddStream(stream media.Stream) error
	CreateOffer(ctx context.Context) (string, error)
	CreateAnswer(ctx context.Context) (string, error)
	SetRemoteDescription(kind DescriptionKind, sdp string) error
	AddCandidate(c models.Candidate) error
	Close() error
}

// RemoteTrack describes an incoming media track.
type RemoteTrack struct {
	ID       string
	StreamID string
	Kind     string
	Codec    string
}

// ChannelHooks are invoked from the channel's own goroutines.
type ChannelHooks struct {
	OnCandidate func(models.Candidate)
	OnTrack     func(RemoteTrack)
}

// ChannelFactory creates a Channel per call. callID tags everything the
// channel produces.
type ChannelFactory interface {
	NewChannel(callID string, hooks ChannelHooks) (Channel, error)
}

// StatusLevel mirrors the colour of the status line.
type StatusLevel int

const (
	StatusInfo StatusLevel = iota
	StatusOK
	StatusError
)

// Presenter is a write-only sink for everything the user should see.
type Presenter interface {
	Status(text string, level StatusLevel)
	Roster(peers []string)
	CallPanel(target string, visible bool)
	LocalStream(stream media.Stream)
	RemoteTrack(track RemoteTrack)
	ClearRemote()
	Alert(message string)
}

// Snapshot is a point-in-time copy of the controller state.
type Snapshot struct {
	Identity  string
	State     State
	Direction Direction
	Target    string
	CallID    string
	// Peers is the roster without the local identity.
	Peers []string
}
