package signal

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/mossy-p/videocall/internal/handlers"
	"github.com/mossy-p/videocall/internal/middleware"
	"github.com/mossy-p/videocall/internal/models"
	"github.com/mossy-p/videocall/internal/users"
)

const testSecret = "secret"

func newRelay(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handlers.RegisterRoutes(router, users.NewMemoryStore(), handlers.NewHub(testSecret, nil), testSecret)
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts
}

func endpoint(t *testing.T, ts *httptest.Server, name string) string {
	t.Helper()
	tok, err := middleware.IssueToken(testSecret, name)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/signal/" + name + "?token=" + url.QueryEscape(tok)
}

func next(t *testing.T, tr *Transport) models.Message {
	t.Helper()
	select {
	case msg, ok := <-tr.Messages():
		if !ok {
			t.Fatalf("message stream closed: %v", tr.Err())
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for message")
	}
	return nil
}

func TestDialAnnouncesLogin(t *testing.T) {
	ts := newRelay(t)

	tr, err := Dial(context.Background(), endpoint(t, ts, "alice"), "alice")
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer tr.Close()

	if login, ok := next(t, tr).(models.Login); !ok || !login.Success {
		t.Fatalf("expected login echo")
	}
	list, ok := next(t, tr).(models.UserList)
	if !ok || !reflect.DeepEqual(list.Users, []string{"alice"}) {
		t.Fatalf("expected roster [alice], got %#v", list)
	}
	if tr.Err() != nil {
		t.Fatalf("Err on open connection = %v", tr.Err())
	}
}

func TestSendReachesPeer(t *testing.T) {
	ts := newRelay(t)
	ctx := context.Background()

	alice, err := Dial(ctx, endpoint(t, ts, "alice"), "alice")
	if err != nil {
		t.Fatalf("Dial alice: %v", err)
	}
	defer alice.Close()
	next(t, alice) // login
	next(t, alice) // roster

	bob, err := Dial(ctx, endpoint(t, ts, "bob"), "bob")
	if err != nil {
		t.Fatalf("Dial bob: %v", err)
	}
	defer bob.Close()
	next(t, bob)
	next(t, bob)

	if err := alice.Send(models.Offer{Name: "alice", Target: "bob", SDP: "v=0"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	offer, ok := next(t, bob).(models.Offer)
	if !ok || offer.Name != "alice" || offer.SDP != "v=0" {
		t.Fatalf("bob got %#v", offer)
	}
}

func TestCloseEndsStream(t *testing.T) {
	ts := newRelay(t)

	tr, err := Dial(context.Background(), endpoint(t, ts, "alice"), "alice")
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	tr.Close()
	tr.Close()

	select {
	case <-tr.Done():
	case <-time.After(time.Second):
		t.Fatalf("Done not closed")
	}
	if !errors.Is(tr.Err(), ErrClosed) {
		t.Fatalf("Err = %v, want ErrClosed", tr.Err())
	}
	if err := tr.Send(models.Login{Name: "alice"}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Send after close = %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-tr.Messages():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("message stream not closed")
		}
	}
}

func TestServerCloseReportsError(t *testing.T) {
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		// Read the login announcement, then drop the connection without a close frame.
		conn.ReadMessage()
		conn.Close()
	}))
	defer ts.Close()

	tr, err := Dial(context.Background(), "ws"+strings.TrimPrefix(ts.URL, "http"), "alice")
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer tr.Close()

	select {
	case <-tr.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("Done not closed after server went away")
	}
	if tr.Err() == nil || errors.Is(tr.Err(), ErrClosed) {
		t.Fatalf("Err = %v, want a read error", tr.Err())
	}
}

func TestDialFailure(t *testing.T) {
	ts := newRelay(t)

	// Token issued for someone else is refused during the handshake.
	wrong := strings.Replace(endpoint(t, ts, "bob"), "/bob?", "/alice?", 1)
	if _, err := Dial(context.Background(), wrong, "alice"); err == nil {
		t.Fatalf("Dial succeeded with foreign token")
	}
}
