// Package client turns a username into a running call session: it registers
// or logs in, dials the relay and hands the connection to a session.Controller.
package client

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/mossy-p/videocall/config"
	"github.com/mossy-p/videocall/internal/identity"
	"github.com/mossy-p/videocall/internal/media"
	"github.com/mossy-p/videocall/internal/session"
	"github.com/mossy-p/videocall/internal/signal"
)

type Mode string

const (
	ModeRegister Mode = "register"
	ModeLogin    Mode = "login"
)

var ErrUnknownMode = errors.New("mode must be register or login")

// Deps are the pieces Connect does not build itself.
type Deps struct {
	HTTP      *http.Client
	Channels  session.ChannelFactory
	Media     media.Source
	Presenter session.Presenter
}

// Session is a logged-in user. Run drives it until the relay connection
// ends or ctx is cancelled.
type Session struct {
	*session.Controller
	transport *signal.Transport
}

// Close drops the relay connection, which also ends Run.
func (s *Session) Close() error {
	return s.transport.Close()
}

// Connect authenticates username with the relay and opens the signaling
// connection. On failure nothing is left open and the presenter has been
// told why.
func Connect(ctx context.Context, cfg *config.ClientConfig, mode Mode, username string, deps Deps) (*Session, error) {
	s, err := connect(ctx, cfg, mode, strings.TrimSpace(username), deps)
	if err != nil {
		deps.Presenter.Status("not connected", session.StatusError)
		deps.Presenter.Alert(err.Error())
		return nil, err
	}
	return s, nil
}

func connect(ctx context.Context, cfg *config.ClientConfig, mode Mode, username string, deps Deps) (*Session, error) {
	ids := identity.NewClient(cfg.ServerURL, deps.HTTP)

	var (
		token string
		err   error
	)
	switch mode {
	case ModeRegister:
		deps.Presenter.Status("registering "+username, session.StatusInfo)
		token, err = ids.Register(ctx, username)
	case ModeLogin:
		deps.Presenter.Status("logging in as "+username, session.StatusInfo)
		token, err = ids.Login(ctx, username)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	if err != nil {
		return nil, err
	}

	endpoint, err := cfg.SignalEndpoint(username, token)
	if err != nil {
		return nil, err
	}
	tr, err := signal.Dial(ctx, endpoint, username)
	if err != nil {
		return nil, err
	}
	log.Printf("CLIENT: %s connected to relay", username)

	ctrl := session.New(session.Options{
		Identity:  username,
		Transport: tr,
		Channels:  deps.Channels,
		Media:     deps.Media,
		Presenter: deps.Presenter,
	})
	return &Session{Controller: ctrl, transport: tr}, nil
}
