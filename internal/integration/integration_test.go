package integration

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

	"github.com/devaloi/toastbox/internal/domain"
	"github.com/devaloi/toastbox/internal/handler"
	"github.com/devaloi/toastbox/internal/hub"
	"github.com/devaloi/toastbox/internal/store"
	"github.com/devaloi/toastbox/internal/toast"
)

func setupServer(t *testing.T, cfg toast.Config) (*httptest.Server, *hub.Hub, *store.SQLiteStore) {
	t.Helper()
	s, err := store.NewSQLite(":memory:")
	require.NoError(t, err)

	h := hub.New(s, hub.Config{MaxProviders: 100, Toast: cfg})
	go h.Run()

	server := httptest.NewServer(handler.NewRouter(handler.RouterConfig{
		Hub:          h,
		History:      s,
		HistoryLimit: 50,
	}))
	t.Cleanup(func() {
		server.Close()
		h.Stop()
		s.Close()
	})
	return server, h, s
}

func dialWS(t *testing.T, serverURL, name string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(serverURL, "http") + "/ws?client=" + name
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err, "dial %s", name)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func join(t *testing.T, conn *websocket.Conn, provider string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "join", "provider": provider}))
	readUntil(t, conn, func(m map[string]any) bool { return m["type"] == "snapshot" })
}

func readUntil(t *testing.T, conn *websocket.Conn, match func(map[string]any) bool) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err, "no matching frame")
		var msg map[string]any
		if json.Unmarshal(data, &msg) != nil {
			continue
		}
		if match(msg) {
			return msg
		}
	}
}

func postToast(t *testing.T, serverURL, provider, body string) (int, domain.AddResponse) {
	t.Helper()
	resp, err := http.Post(serverURL+"/api/providers/"+provider+"/toasts", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out domain.AddResponse
	if resp.StatusCode == http.StatusCreated {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func snapshotMessages(m map[string]any) []string {
	toasts, _ := m["toasts"].([]any)
	out := make([]string, 0, len(toasts))
	for _, raw := range toasts {
		out = append(out, raw.(map[string]any)["message"].(string))
	}
	return out
}

func TestRESTAddReachesRenderersAndExpires(t *testing.T) {
	t.Parallel()
	server, _, s := setupServer(t, toast.Config{})

	alice := dialWS(t, server.URL, "alice")
	bob := dialWS(t, server.URL, "bob")
	join(t, alice, "app")
	join(t, bob, "app")

	code, resp := postToast(t, server.URL, "app", `{"message":"Saved","type":"success","duration":150}`)
	require.Equal(t, http.StatusCreated, code)

	for _, conn := range []*websocket.Conn{alice, bob} {
		added := readUntil(t, conn, func(m map[string]any) bool { return m["type"] == "added" })
		assert.Equal(t, float64(resp.ID), added["toast"].(map[string]any)["id"])

		removed := readUntil(t, conn, func(m map[string]any) bool { return m["type"] == "removed" })
		assert.Equal(t, float64(resp.ID), removed["id"])
		assert.Equal(t, "expired", removed["reason"])
	}

	entries, err := s.Recent("app", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Saved", entries[0].Message)
	assert.Equal(t, "success", entries[0].Type)
	assert.Equal(t, "expired", entries[0].Reason)
	assert.False(t, entries[0].Closed.Before(entries[0].Created.Add(150*time.Millisecond)))
}

func TestDropOldestOverWebSocket(t *testing.T) {
	t.Parallel()
	server, h, _ := setupServer(t, toast.Config{MaxSnackBar: 2, DefaultDuration: time.Minute})

	conn := dialWS(t, server.URL, "alice")
	join(t, conn, "app")

	for _, msg := range []string{"A", "B", "C"} {
		require.NoError(t, conn.WriteJSON(map[string]any{"type": "add", "provider": "app", "message": msg}))
	}

	snap := readUntil(t, conn, func(m map[string]any) bool {
		return m["type"] == "snapshot" && len(snapshotMessages(m)) == 2 && snapshotMessages(m)[1] == "C"
	})
	assert.Equal(t, []string{"B", "C"}, snapshotMessages(snap))

	toasts, err := h.Toasts("app")
	require.NoError(t, err)
	require.Len(t, toasts, 2)
	assert.Equal(t, "B", toasts[0].Message)
}

func TestManualCloseOverRESTAndWebSocket(t *testing.T) {
	t.Parallel()
	server, _, s := setupServer(t, toast.Config{DefaultDuration: time.Minute})

	conn := dialWS(t, server.URL, "alice")
	join(t, conn, "app")

	_, first := postToast(t, server.URL, "app", `{"message":"one"}`)
	_, second := postToast(t, server.URL, "app", `{"message":"two"}`)

	req, err := http.NewRequest(http.MethodDelete, server.URL+"/api/providers/app/toasts/"+strconv.FormatInt(first.ID, 10), nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "close", "provider": "app", "id": second.ID}))

	snap := readUntil(t, conn, func(m map[string]any) bool {
		return m["type"] == "snapshot" && len(snapshotMessages(m)) == 0
	})
	assert.Empty(t, snapshotMessages(snap))

	require.Eventually(t, func() bool {
		entries, err := s.Recent("app", 10)
		return err == nil && len(entries) == 2
	}, 2*time.Second, 10*time.Millisecond)
	entries, _ := s.Recent("app", 10)
	for _, e := range entries {
		assert.Equal(t, "closed", e.Reason)
	}
}

func TestProviderListing(t *testing.T) {
	t.Parallel()
	server, _, _ := setupServer(t, toast.Config{DefaultDuration: time.Minute})

	conn := dialWS(t, server.URL, "alice")
	join(t, conn, "app")

	resp, err := http.Get(server.URL + "/api/providers")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var providers []domain.Provider
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&providers))
	require.Len(t, providers, 1)
	assert.Equal(t, "app", providers[0].Name)
	assert.Equal(t, 1, providers[0].ClientCount)
	assert.Equal(t, 3, providers[0].MaxSnackBar)
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()
	server, _, _ := setupServer(t, toast.Config{})

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
