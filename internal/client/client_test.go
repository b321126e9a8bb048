package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devaloi/toastbox/internal/hub"
	"github.com/devaloi/toastbox/internal/testutil"
	"github.com/devaloi/toastbox/internal/toast"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func newTestHub(t *testing.T) *hub.Hub {
	t.Helper()
	h := hub.New(testutil.NewMockHistory(), hub.Config{
		MaxProviders: 100,
		Toast:        toast.Config{MaxSnackBar: 3, DefaultDuration: time.Minute},
	})
	go h.Run()
	t.Cleanup(h.Stop)
	return h
}

func setupTestServer(t *testing.T, h *hub.Hub) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		name := r.URL.Query().Get("client")
		if name == "" {
			name = "test"
		}
		c := New(h, conn, name, nil)
		go c.ReadPump()
		go c.WritePump()
	}))
	t.Cleanup(server.Close)
	return server
}

func dialWS(t *testing.T, url string, name string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(url, "http") + "?client=" + name
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg map[string]any
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

// readUntil reads frames until match returns true or the deadline passes.
func readUntil(t *testing.T, conn *websocket.Conn, match func(map[string]any) bool) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err, "no matching frame")
		var msg map[string]any
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if match(msg) {
			return msg
		}
	}
}

func ofType(typ string) func(map[string]any) bool {
	return func(m map[string]any) bool { return m["type"] == typ }
}

func TestClientJoinReceivesSnapshot(t *testing.T) {
	t.Parallel()
	h := newTestHub(t)
	server := setupTestServer(t, h)
	conn := dialWS(t, server.URL, "alice")

	send(t, conn, `{"type":"join","provider":"main"}`)

	msg := readMessage(t, conn)
	assert.Equal(t, "snapshot", msg["type"])
	assert.Equal(t, "main", msg["provider"])
	assert.Empty(t, msg["toasts"])
}

func TestClientAddBroadcasts(t *testing.T) {
	t.Parallel()
	h := newTestHub(t)
	server := setupTestServer(t, h)

	conn1 := dialWS(t, server.URL, "alice")
	conn2 := dialWS(t, server.URL, "bob")
	send(t, conn1, `{"type":"join","provider":"main"}`)
	readUntil(t, conn1, ofType("snapshot"))
	send(t, conn2, `{"type":"join","provider":"main"}`)
	readUntil(t, conn2, ofType("snapshot"))

	send(t, conn1, `{"type":"add","provider":"main","message":"saved","variant":"success","duration":5000}`)

	added := readUntil(t, conn2, ofType("added"))
	toastFrame := added["toast"].(map[string]any)
	assert.Equal(t, "saved", toastFrame["message"])
	assert.Equal(t, "success", toastFrame["type"])
	assert.Equal(t, float64(5000), toastFrame["duration"])

	snap := readUntil(t, conn2, func(m map[string]any) bool {
		toasts, _ := m["toasts"].([]any)
		return m["type"] == "snapshot" && len(toasts) == 1
	})
	assert.Equal(t, "main", snap["provider"])
}

func TestClientClose(t *testing.T) {
	t.Parallel()
	h := newTestHub(t)
	server := setupTestServer(t, h)
	conn := dialWS(t, server.URL, "alice")

	send(t, conn, `{"type":"join","provider":"main"}`)
	readUntil(t, conn, ofType("snapshot"))

	id, err := h.AddToast("main", toast.Spec{Message: "bye"})
	require.NoError(t, err)
	readUntil(t, conn, ofType("added"))

	send(t, conn, `{"type":"close","provider":"main","id":`+strconv.FormatInt(id, 10)+`}`)

	removed := readUntil(t, conn, ofType("removed"))
	assert.Equal(t, float64(id), removed["id"])
	assert.Equal(t, "closed", removed["reason"])

	toasts, err := h.Toasts("main")
	require.NoError(t, err)
	assert.Empty(t, toasts)
}

func TestClientInvalidJSON(t *testing.T) {
	t.Parallel()
	h := newTestHub(t)
	server := setupTestServer(t, h)
	conn := dialWS(t, server.URL, "alice")

	send(t, conn, "not json")
	msg := readMessage(t, conn)
	assert.Equal(t, "error", msg["type"])
	assert.Equal(t, "invalid JSON", msg["message"])
}

func TestClientAddWithoutJoin(t *testing.T) {
	t.Parallel()
	h := newTestHub(t)
	server := setupTestServer(t, h)
	conn := dialWS(t, server.URL, "alice")

	send(t, conn, `{"type":"add","provider":"main","message":"hi"}`)
	msg := readMessage(t, conn)
	assert.Equal(t, "error", msg["type"])
	assert.Equal(t, "not joined to provider", msg["message"])
	assert.Nil(t, h.ProviderInfo("main"))
}

func TestClientAddInvalidArgument(t *testing.T) {
	t.Parallel()
	h := newTestHub(t)
	server := setupTestServer(t, h)
	conn := dialWS(t, server.URL, "alice")

	send(t, conn, `{"type":"join","provider":"main"}`)
	readUntil(t, conn, ofType("snapshot"))

	send(t, conn, `{"type":"add","provider":"main","message":""}`)
	msg := readUntil(t, conn, ofType("error"))
	assert.Contains(t, msg["message"], "invalid argument")

	send(t, conn, `{"type":"add","provider":"main","message":"x","variant":"warning"}`)
	msg = readUntil(t, conn, ofType("error"))
	assert.Contains(t, msg["message"], "unknown variant")

	send(t, conn, `{"type":"add","provider":"main","message":"x","duration":18446744073710}`)
	msg = readUntil(t, conn, ofType("error"))
	assert.Contains(t, msg["message"], "duration exceeds")

	toasts, err := h.Toasts("main")
	require.NoError(t, err)
	assert.Empty(t, toasts)
}

func TestClientUnknownType(t *testing.T) {
	t.Parallel()
	h := newTestHub(t)
	server := setupTestServer(t, h)
	conn := dialWS(t, server.URL, "alice")

	send(t, conn, `{"type":"dance","provider":"main"}`)
	msg := readMessage(t, conn)
	assert.Equal(t, "error", msg["type"])
	assert.Equal(t, "unknown message type: dance", msg["message"])
}

func TestClientDisconnectReleasesProvider(t *testing.T) {
	t.Parallel()
	h := newTestHub(t)
	server := setupTestServer(t, h)
	conn := dialWS(t, server.URL, "alice")

	send(t, conn, `{"type":"join","provider":"ephemeral"}`)
	readUntil(t, conn, ofType("snapshot"))
	require.NotNil(t, h.ProviderInfo("ephemeral"))

	conn.Close()
	assert.Eventually(t, func() bool { return h.ProviderInfo("ephemeral") == nil }, 2*time.Second, 10*time.Millisecond)
}
