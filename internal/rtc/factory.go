// Package rtc implements session channels on top of pion/webrtc.
package rtc

import (
	"fmt"
	"log"
	"time"

	"github.com/mossy-p/videocall/internal/media"
	"github.com/mossy-p/videocall/internal/session"
	"github.com/pion/interceptor"
	"github.com/pion/interceptor/pkg/intervalpli"
	"github.com/pion/webrtc/v4"
)

const (
	iceDisconnectedTimeout = 5 * time.Second
	iceFailedTimeout       = 15 * time.Second
	iceKeepaliveInterval   = 2 * time.Second
)

type Options struct {
	ICEServers []string
	// Media is consulted for codec registration; sources that bring their
	// own encoders implement media.CodecRegistrar.
	Media media.Source
	// RecordDir, when set, receives one file per remote VP8 or Opus track.
	RecordDir string
}

// Factory builds one pion API and hands out a PeerConnection per call.
type Factory struct {
	api       *webrtc.API
	config    webrtc.Configuration
	recordDir string
}

func NewFactory(opts Options) (*Factory, error) {
	m := &webrtc.MediaEngine{}
	if reg, ok := opts.Media.(media.CodecRegistrar); ok {
		if err := reg.RegisterCodecs(m); err != nil {
			return nil, fmt.Errorf("register source codecs: %w", err)
		}
	} else if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register default codecs: %w", err)
	}

	registry := &interceptor.Registry{}
	pli, err := intervalpli.NewReceiverInterceptor()
	if err != nil {
		return nil, fmt.Errorf("pli interceptor: %w", err)
	}
	registry.Add(pli)
	if err := webrtc.RegisterDefaultInterceptors(m, registry); err != nil {
		return nil, fmt.Errorf("register interceptors: %w", err)
	}

	se := webrtc.SettingEngine{}
	se.SetICETimeouts(iceDisconnectedTimeout, iceFailedTimeout, iceKeepaliveInterval)

	var servers []webrtc.ICEServer
	if len(opts.ICEServers) > 0 {
		servers = []webrtc.ICEServer{{URLs: opts.ICEServers}}
	}

	return &Factory{
		api: webrtc.NewAPI(
			webrtc.WithMediaEngine(m),
			webrtc.WithInterceptorRegistry(registry),
			webrtc.WithSettingEngine(se),
		),
		config:    webrtc.Configuration{ICEServers: servers},
		recordDir: opts.RecordDir,
	}, nil
}

func (f *Factory) NewChannel(callID string, hooks session.ChannelHooks) (session.Channel, error) {
	pc, err := f.api.NewPeerConnection(f.config)
	if err != nil {
		return nil, fmt.Errorf("new peer connection: %w", err)
	}

	ch := &Channel{
		callID:    callID,
		pc:        pc,
		hooks:     hooks,
		recordDir: f.recordDir,
	}
	pc.OnICECandidate(ch.onICECandidate)
	pc.OnTrack(ch.onTrack)
	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Printf("RTC [%s]: connection state %s", callID, s)
	})
	return ch, nil
}
