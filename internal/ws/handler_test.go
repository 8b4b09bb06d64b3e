package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/farkle-backend/internal/protocol"
)

// accepted returns the server side of a fresh websocket pair.
func accepted(t *testing.T) *websocket.Conn {
	t.Helper()
	conns := make(chan *websocket.Conn, 1)
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		conns <- conn
		<-release
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	client, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.CloseNow() })

	select {
	case conn := <-conns:
		return conn
	case <-ctx.Done():
		t.Fatalf("server never accepted")
		return nil
	}
}

func TestWriter_FailedWriteStopsConnection(t *testing.T) {
	conn := accepted(t)
	require.NoError(t, conn.CloseNow())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := &connection{
		conn:   conn,
		out:    make(chan protocol.Message, outboxSize),
		log:    zaptest.NewLogger(t),
		ctx:    ctx,
		cancel: cancel,
	}
	c.out <- protocol.Notice{Text: "hello"}

	done := make(chan struct{})
	go func() {
		c.writer()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("writer kept running after a failed write")
	}
	assert.ErrorIs(t, c.ctx.Err(), context.Canceled)

	// Nobody drains the outbox any more; notices for a flood of bad frames
	// must not wedge the reader.
	sent := make(chan struct{})
	go func() {
		for i := 0; i < outboxSize*4; i++ {
			c.notice("bad json")
		}
		close(sent)
	}()
	select {
	case <-sent:
	case <-time.After(2 * time.Second):
		t.Fatalf("notice blocked on a full outbox")
	}
}
