package speech

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectVoice(t *testing.T) {
	tests := []struct {
		name   string
		voices []Voice
		want   string
	}{
		{"none", nil, ""},
		{"non english only", []Voice{{Name: "Amélie", Lang: "fr-CA"}}, ""},
		{"female english wins", []Voice{
			{Name: "Google US English", Lang: "en-US"},
			{Name: "Microsoft Zira - English", Lang: "en-US"},
		}, "Microsoft Zira - English"},
		{"google over plain english", []Voice{
			{Name: "Daniel", Lang: "en-GB"},
			{Name: "Google UK English Male", Lang: "en-GB"},
		}, "Google UK English Male"},
		{"any english", []Voice{
			{Name: "Thomas", Lang: "fr-FR"},
			{Name: "Daniel", Lang: "en-GB"},
		}, "Daniel"},
		{"female hint needs english", []Voice{
			{Name: "Female Deutsch", Lang: "de-DE"},
			{Name: "Alex", Lang: "en_US"},
		}, "Alex"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectVoice(tt.voices))
		})
	}
}

func startHub(t *testing.T, hub *Hub, handler Handler) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Serve(conn, handler)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg map[string]interface{}
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHubSpeak(t *testing.T) {
	hub := NewHub(DefaultSettings(), nil)
	url := startHub(t, hub, nil)

	conn := dial(t, url)
	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":   TypeVoices,
		"voices": []Voice{{Name: "Google US English", Lang: "en-US"}},
	}))
	ack := readJSON(t, conn)
	assert.Equal(t, TypeVoice, ack["type"])
	assert.Equal(t, "Google US English", ack["voice"])

	require.NoError(t, hub.Speak(context.Background(), "Order 7 has been updated to done."))

	msg := readJSON(t, conn)
	assert.Equal(t, TypeSpeak, msg["type"])
	assert.Equal(t, "Order 7 has been updated to done.", msg["text"])
	assert.Equal(t, "Google US English", msg["voice"])
	assert.Equal(t, 1.0, msg["rate"])
	assert.Equal(t, 1.0, msg["pitch"])
	assert.Equal(t, 0.8, msg["volume"])
}

func TestHubSpeakToOneClient(t *testing.T) {
	hub := NewHub(DefaultSettings(), nil)
	ids := make(chan string, 2)
	url := startHub(t, hub, func(c *Client, msg []byte) {
		ids <- c.ID
	})

	first := dial(t, url)
	second := dial(t, url)
	require.NoError(t, first.WriteMessage(websocket.TextMessage, []byte(`{"type":"hello"}`)))

	var id string
	select {
	case id = <-ids:
	case <-time.After(2 * time.Second):
		t.Fatal("handler not called")
	}
	require.Eventually(t, func() bool { return hub.Len() == 2 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Speak(WithClient(context.Background(), id), "only you"))

	msg := readJSON(t, first)
	assert.Equal(t, "only you", msg["text"])

	require.NoError(t, second.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := second.ReadMessage()
	assert.Error(t, err)
}

func TestHubDropsClosedClients(t *testing.T) {
	hub := NewHub(DefaultSettings(), nil)
	url := startHub(t, hub, nil)

	conn := dial(t, url)
	require.Eventually(t, func() bool { return hub.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.NoError(t, hub.Speak(context.Background(), "anyone there"))
}

func TestHubSpeakCancelled(t *testing.T) {
	hub := NewHub(DefaultSettings(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, hub.Speak(ctx, "hello"), context.Canceled)
}

func TestSpeakMessageShape(t *testing.T) {
	data, err := json.Marshal(speakMessage{Type: TypeSpeak, Text: "hi", Rate: 1, Pitch: 1, Volume: 0.8})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"speak","text":"hi","rate":1,"pitch":1,"volume":0.8}`, string(data))
}
