package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/models"
)

// wsPair returns a connected server-side and client-side websocket.
func wsPair(t *testing.T) (*websocket.Conn, *websocket.Conn) {
	t.Helper()

	connCh := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		connCh <- conn
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientConn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { clientConn.Close() })

	select {
	case serverConn := <-connCh:
		t.Cleanup(func() { serverConn.Close() })
		return serverConn, clientConn
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for server side of websocket")
		return nil, nil
	}
}

func readEnvelope(t *testing.T, conn *websocket.Conn) models.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env models.Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func TestRegisterAcksWithSystemFrame(t *testing.T) {
	relay := NewRelay()
	serverConn, clientConn := wsPair(t)

	relay.Register(7, serverConn, ConnInfo{UserID: 7})

	ack := readEnvelope(t, clientConn)
	require.Equal(t, models.FrameSystem, ack.Type)
	require.True(t, relay.Online(7))
}

func TestDeliverReachesRegisteredRecipient(t *testing.T) {
	relay := NewRelay()
	serverConn, clientConn := wsPair(t)

	relay.Register(2, serverConn, ConnInfo{UserID: 2})
	readEnvelope(t, clientConn) // ack

	msg := models.Message{ID: 10, ConversationID: 1, SenderID: 1, RecipientID: 2, Content: "hello"}
	relay.Deliver(models.MessageEnvelope(msg))

	env := readEnvelope(t, clientConn)
	require.Equal(t, models.FrameMessage, env.Type)
	require.NotNil(t, env.Message)
	require.Equal(t, "hello", env.Message.Content)
	require.Equal(t, 10, env.Message.ID)
}

func TestRegisterAckIsFirstFrame(t *testing.T) {
	relay := NewRelay()
	serverConn, clientConn := wsPair(t)

	// hammer the user with deliveries while the registration runs
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
				relay.Deliver(models.MessageEnvelope(models.Message{ID: 1, RecipientID: 6, Content: "racing"}))
			}
		}
	}()

	relay.Register(6, serverConn, ConnInfo{UserID: 6})
	close(stop)
	<-done

	first := readEnvelope(t, clientConn)
	require.Equal(t, models.FrameSystem, first.Type)
}

func TestDeliverDropsWhenRecipientOffline(t *testing.T) {
	relay := NewRelay()

	// no registration; must not panic or block
	relay.Deliver(models.MessageEnvelope(models.Message{ID: 1, RecipientID: 99, Content: "x"}))
	require.False(t, relay.Online(99))
}

func TestLastConnectionWins(t *testing.T) {
	relay := NewRelay()
	firstServer, firstClient := wsPair(t)
	secondServer, secondClient := wsPair(t)

	relay.Register(3, firstServer, ConnInfo{UserID: 3})
	readEnvelope(t, firstClient) // ack

	relay.Register(3, secondServer, ConnInfo{UserID: 3})
	readEnvelope(t, secondClient) // ack

	// replaced socket is closed by the relay
	require.NoError(t, firstClient.SetReadDeadline(time.Now().Add(2*time.Second)))
	var discard models.Envelope
	require.Error(t, firstClient.ReadJSON(&discard))

	relay.Deliver(models.MessageEnvelope(models.Message{ID: 4, RecipientID: 3, Content: "second"}))
	env := readEnvelope(t, secondClient)
	require.Equal(t, "second", env.Message.Content)
}

func TestUnregisterIgnoresReplacedConn(t *testing.T) {
	relay := NewRelay()
	firstServer, firstClient := wsPair(t)
	secondServer, secondClient := wsPair(t)

	relay.Register(5, firstServer, ConnInfo{UserID: 5})
	readEnvelope(t, firstClient)
	relay.Register(5, secondServer, ConnInfo{UserID: 5})
	readEnvelope(t, secondClient)

	// the evicted socket's teardown must not evict its successor
	relay.Unregister(5, firstServer)
	require.True(t, relay.Online(5))

	relay.Unregister(5, secondServer)
	require.False(t, relay.Online(5))
}
