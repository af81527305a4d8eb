package message_test

import (
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devblok/tessera/core"
	"github.com/devblok/tessera/domain"
	"github.com/devblok/tessera/message"
)

func testConfiguration() core.MessageConfiguration {
	return core.MessageConfiguration{
		Enabled:   true,
		Address:   "127.0.0.1:0",
		Path:      "/messages",
		QueueSize: 8,
	}
}

func receive(t *testing.T, ch <-chan message.Message) message.Message {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(5 * time.Second):
		t.Fatal("no message received")
		return message.Message{}
	}
}

func TestMessagesOverWebsocket(t *testing.T) {
	d := message.NewMessageDomain(testConfiguration(), nil)
	got := make(chan message.Message, 4)
	d.OnMessage(func(m message.Message) { got <- m })

	require.NoError(t, d.Initialize(nil))
	require.NoError(t, d.Start())
	defer d.Cleanup(nil)
	defer d.Stop()
	assert.Equal(t, domain.Running, d.State())

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+d.Server().Addr()+"/messages", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`garbage`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"address": "/tempo", "args": [120]}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`[{"address": "/a"}, {"address": "/b"}]`)))

	m := receive(t, got)
	assert.Equal(t, "/tempo", m.Address)
	assert.Equal(t, []any{120.0}, m.Args)
	assert.Equal(t, "/a", receive(t, got).Address)
	assert.Equal(t, "/b", receive(t, got).Address)
}

func TestExtraHandler(t *testing.T) {
	d := message.NewMessageDomain(testConfiguration(), nil)
	d.Handle("/health", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "ok")
	}))
	require.NoError(t, d.Initialize(nil))
	require.NoError(t, d.Start())
	defer d.Cleanup(nil)
	defer d.Stop()

	resp, err := http.Get("http://" + d.Server().Addr() + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
}

func TestPostWithoutNetwork(t *testing.T) {
	d := message.NewMessageDomain(testConfiguration(), nil)
	got := make(chan message.Message, 1)
	d.OnMessage(func(m message.Message) { got <- m })
	d.Post(message.Message{Address: "/queued"})

	require.NoError(t, d.Initialize(nil))
	require.NoError(t, d.Start())
	assert.Equal(t, "/queued", receive(t, got).Address)

	require.NoError(t, d.Stop())
	assert.Equal(t, domain.Stopped, d.State())
	assert.Empty(t, d.Server().Addr())
	require.NoError(t, d.Stop())
	require.NoError(t, d.Cleanup(nil))
	assert.Equal(t, domain.CleanedUp, d.State())
}

func TestFullQueueDrops(t *testing.T) {
	cfg := testConfiguration()
	cfg.QueueSize = 2
	d := message.NewMessageDomain(cfg, nil)
	for i := 0; i < 5; i++ {
		d.Post(message.Message{Address: "/x"})
	}
	assert.Equal(t, uint64(3), d.Dropped())
}

func TestRestart(t *testing.T) {
	d := message.NewMessageDomain(testConfiguration(), nil)
	got := make(chan message.Message, 1)
	d.OnMessage(func(m message.Message) { got <- m })

	require.NoError(t, d.Initialize(nil))
	require.NoError(t, d.Start())
	require.NoError(t, d.Stop())
	require.NoError(t, d.Start())
	defer d.Cleanup(nil)
	defer d.Stop()

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+d.Server().Addr()+"/messages", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"address": "/again"}`)))
	assert.Equal(t, "/again", receive(t, got).Address)
}

func TestPortInUse(t *testing.T) {
	first := message.NewMessageDomain(testConfiguration(), nil)
	require.NoError(t, first.Initialize(nil))
	defer first.Cleanup(nil)

	cfg := testConfiguration()
	cfg.Address = first.Server().Addr()
	second := message.NewMessageDomain(cfg, nil)
	assert.Error(t, second.Initialize(nil))
	assert.Equal(t, domain.Uninitialized, second.State())
}
