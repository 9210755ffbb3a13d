package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	ossignal "os/signal"
	"strings"
	"syscall"

	"github.com/mossy-p/videocall/config"
	"github.com/mossy-p/videocall/internal/client"
	"github.com/mossy-p/videocall/internal/media"
	"github.com/mossy-p/videocall/internal/media/devices"
	"github.com/mossy-p/videocall/internal/presenter"
	"github.com/mossy-p/videocall/internal/rtc"
)

const usage = "usage: callclient register|login <username>"

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	mode, username := client.Mode(os.Args[1]), os.Args[2]

	cfg := config.LoadClient()

	source, err := newSource(cfg.MediaSource)
	if err != nil {
		log.Fatalf("Failed to set up media: %v", err)
	}
	factory, err := rtc.NewFactory(rtc.Options{
		ICEServers: cfg.ICEServers,
		Media:      source,
		RecordDir:  cfg.RecordDir,
	})
	if err != nil {
		log.Fatalf("Failed to set up WebRTC: %v", err)
	}

	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	console := presenter.NewConsole(os.Stdout)
	sess, err := client.Connect(ctx, cfg, mode, username, client.Deps{
		Channels:  factory,
		Media:     source,
		Presenter: console,
	})
	if err != nil {
		os.Exit(1)
	}
	defer sess.Close()

	runErr := make(chan error, 1)
	go func() { runErr <- sess.Run(ctx) }()
	go readCommands(ctx, sess, console, stop)

	if err := <-runErr; err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("Session ended: %v", err)
		os.Exit(1)
	}
}

func newSource(kind string) (media.Source, error) {
	if kind == media.KindDevices {
		return devices.NewSource()
	}
	return media.NewSource(kind)
}

// readCommands runs the interactive prompt until stdin closes or quit.
func readCommands(ctx context.Context, sess *client.Session, console *presenter.Console, stop context.CancelFunc) {
	defer stop()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "call":
			if len(fields) != 2 {
				fmt.Println("usage: call <username>")
				continue
			}
			if err := sess.StartCall(ctx, fields[1]); err != nil {
				console.Alert(err.Error())
			}
		case "leave":
			if err := sess.Leave(ctx); err != nil {
				console.Alert(err.Error())
			}
		case "peers":
			peers := console.Peers()
			if len(peers) == 0 {
				fmt.Println("nobody else is online")
				continue
			}
			fmt.Println(strings.Join(peers, "\n"))
		case "status":
			snap := sess.Snapshot()
			fmt.Printf("%s: %s %s %s\n", snap.Identity, snap.State, snap.Direction, snap.Target)
		case "quit", "exit":
			return
		default:
			fmt.Println("commands: call <username>, leave, peers, status, quit")
		}
	}
}
