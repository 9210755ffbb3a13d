// Package signal owns the client side of the relay websocket.
package signal

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mossy-p/videocall/internal/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

var ErrClosed = errors.New("signaling connection closed")

// Transport is one relay connection bound to a single identity. It is not
// restartable: once Done is closed a new Transport must be dialed.
type Transport struct {
	identity string
	conn     *websocket.Conn

	send     chan []byte
	messages chan models.Message
	done     chan struct{}

	closeOnce sync.Once
	mu        sync.Mutex
	err       error
}

// Dial connects to endpoint and announces identity with a login message.
func Dial(ctx context.Context, endpoint, identity string) (*Transport, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay: %w", err)
	}

	t := &Transport{
		identity: identity,
		conn:     conn,
		send:     make(chan []byte, 64),
		messages: make(chan models.Message, 64),
		done:     make(chan struct{}),
	}
	go t.writePump()
	go t.readPump()

	if err := t.Send(models.Login{Name: identity}); err != nil {
		t.Close()
		return nil, err
	}
	return t, nil
}

// Identity returns the username this connection logged in as.
func (t *Transport) Identity() string { return t.identity }

// Messages yields every decoded relay message until the connection ends,
// then is closed.
func (t *Transport) Messages() <-chan models.Message { return t.messages }

// Done is closed once the connection is no longer usable.
func (t *Transport) Done() <-chan struct{} { return t.done }

// Err reports why the connection ended. It is nil while the connection is open.
func (t *Transport) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Send queues msg for delivery. It blocks while the write queue is full.
func (t *Transport) Send(msg models.Message) error {
	data, err := models.Encode(msg)
	if err != nil {
		return err
	}

	select {
	case <-t.done:
		return ErrClosed
	default:
	}

	select {
	case t.send <- data:
		return nil
	case <-t.done:
		return ErrClosed
	}
}

// Close shuts the connection down. It is safe to call more than once.
func (t *Transport) Close() error {
	t.fail(ErrClosed)
	return nil
}

func (t *Transport) fail(err error) {
	t.closeOnce.Do(func() {
		t.mu.Lock()
		t.err = err
		t.mu.Unlock()
		close(t.done)
	})
}

func (t *Transport) readPump() {
	defer close(t.messages)

	t.conn.SetReadDeadline(time.Now().Add(pongWait))
	t.conn.SetPongHandler(func(string) error {
		t.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				t.fail(ErrClosed)
			} else {
				t.fail(fmt.Errorf("read relay: %w", err))
			}
			return
		}

		msg, err := models.Decode(data)
		if err != nil {
			log.Printf("SIGNAL [%s]: dropping frame: %v", t.identity, err)
			continue
		}

		select {
		case t.messages <- msg:
		case <-t.done:
			return
		}
	}
}

func (t *Transport) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		t.conn.Close()
	}()

	for {
		select {
		case data := <-t.send:
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				t.fail(fmt.Errorf("write relay: %w", err))
				return
			}

		case <-ticker.C:
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				t.fail(fmt.Errorf("ping relay: %w", err))
				return
			}

		case <-t.done:
			t.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}
