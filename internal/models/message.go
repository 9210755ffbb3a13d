package models

import (
	"encoding/json"
	"fmt"
)

// MessageType is the tag carried in the "type" field of every relay envelope.
type MessageType string

const (
	MessageTypeLogin     MessageType = "login"
	MessageTypeUserList  MessageType = "user_list"
	MessageTypeOffer     MessageType = "offer"
	MessageTypeAnswer    MessageType = "answer"
	MessageTypeCandidate MessageType = "candidate"
	MessageTypeError     MessageType = "error"
	MessageTypeHangup    MessageType = "hangup"
)

// Message is one of the relay message variants declared in this package.
type Message interface {
	Type() MessageType
}

// Login is sent by a client right after connecting (Name set) and echoed
// back by the relay (Success set).
type Login struct {
	Name    string
	Success bool
}

// UserList carries the full roster of connected usernames.
type UserList struct {
	Users []string
}

type Offer struct {
	Name   string
	Target string
	SDP    string
}

type Answer struct {
	Name   string
	Target string
	SDP    string
}

// Candidate is an opaque reachability descriptor. Field names follow the
// browser RTCIceCandidateInit shape so both sides can exchange it as-is.
type Candidate struct {
	Candidate        string  `json:"candidate"`
	SDPMid           *string `json:"sdpMid,omitempty"`
	SDPMLineIndex    *uint16 `json:"sdpMLineIndex,omitempty"`
	UsernameFragment *string `json:"usernameFragment,omitempty"`
}

// CandidateMessage routes a Candidate to Target. Candidate is nil when the
// sender transmitted an explicit null.
type CandidateMessage struct {
	Name      string
	Target    string
	Candidate *Candidate
}

type Error struct {
	Message string
}

// Hangup ends the call between Name and Target.
type Hangup struct {
	Name   string
	Target string
}

// Unknown holds an envelope whose tag is not one of the known types.
type Unknown struct {
	Tag MessageType
	Raw json.RawMessage
}

func (Login) Type() MessageType            { return MessageTypeLogin }
func (UserList) Type() MessageType         { return MessageTypeUserList }
func (Offer) Type() MessageType            { return MessageTypeOffer }
func (Answer) Type() MessageType           { return MessageTypeAnswer }
func (CandidateMessage) Type() MessageType { return MessageTypeCandidate }
func (Error) Type() MessageType            { return MessageTypeError }
func (Hangup) Type() MessageType           { return MessageTypeHangup }
func (u Unknown) Type() MessageType        { return u.Tag }

// envelope is the flat wire shape shared by all variants.
type envelope struct {
	Type      MessageType `json:"type"`
	Name      string      `json:"name,omitempty"`
	Target    string      `json:"target,omitempty"`
	SDP       string      `json:"sdp,omitempty"`
	Candidate *Candidate  `json:"candidate,omitempty"`
	Users     []string    `json:"users,omitempty"`
	Success   *bool       `json:"success,omitempty"`
	Message   string      `json:"message,omitempty"`
}

// Decode parses one relay envelope. Unrecognised tags decode to Unknown
// rather than failing; only malformed JSON or a missing tag is an error.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}

	switch env.Type {
	case MessageTypeLogin:
		return Login{Name: env.Name, Success: env.Success != nil && *env.Success}, nil
	case MessageTypeUserList:
		return UserList{Users: env.Users}, nil
	case MessageTypeOffer:
		return Offer{Name: env.Name, Target: env.Target, SDP: env.SDP}, nil
	case MessageTypeAnswer:
		return Answer{Name: env.Name, Target: env.Target, SDP: env.SDP}, nil
	case MessageTypeCandidate:
		return CandidateMessage{Name: env.Name, Target: env.Target, Candidate: env.Candidate}, nil
	case MessageTypeError:
		return Error{Message: env.Message}, nil
	case MessageTypeHangup:
		return Hangup{Name: env.Name, Target: env.Target}, nil
	case "":
		return nil, fmt.Errorf("decode message: missing type")
	default:
		raw := make(json.RawMessage, len(data))
		copy(raw, data)
		return Unknown{Tag: env.Type, Raw: raw}, nil
	}
}

// Encode serialises msg into its wire envelope.
func Encode(msg Message) ([]byte, error) {
	env := envelope{Type: msg.Type()}

	switch m := msg.(type) {
	case Login:
		env.Name = m.Name
		if m.Success {
			ok := true
			env.Success = &ok
		}
	case UserList:
		env.Users = m.Users
	case Offer:
		env.Name, env.Target, env.SDP = m.Name, m.Target, m.SDP
	case Answer:
		env.Name, env.Target, env.SDP = m.Name, m.Target, m.SDP
	case CandidateMessage:
		env.Name, env.Target, env.Candidate = m.Name, m.Target, m.Candidate
	case Error:
		env.Message = m.Message
	case Hangup:
		env.Name, env.Target = m.Name, m.Target
	case Unknown:
		return m.Raw, nil
	default:
		return nil, fmt.Errorf("encode message: unsupported variant %T", msg)
	}

	return json.Marshal(env)
}

// Route returns the sender and recipient of a peer-to-peer message. ok is
// false for messages the relay does not forward.
func Route(msg Message) (from, to string, ok bool) {
	switch m := msg.(type) {
	case Offer:
		return m.Name, m.Target, true
	case Answer:
		return m.Name, m.Target, true
	case CandidateMessage:
		return m.Name, m.Target, true
	case Hangup:
		return m.Name, m.Target, true
	}
	return "", "", false
}

// WithSender returns a copy of a routable message with its Name replaced.
// Non-routable messages are returned unchanged.
func WithSender(msg Message, name string) Message {
	switch m := msg.(type) {
	case Offer:
		m.Name = name
		return m
	case Answer:
		m.Name = name
		return m
	case CandidateMessage:
		m.Name = name
		return m
	case Hangup:
		m.Name = name
		return m
	}
	return msg
}
