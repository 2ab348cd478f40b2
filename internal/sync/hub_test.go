package sync

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubBroadcastToTCP(t *testing.T) {
	hub := NewHub()

	server, client := net.Pipe()
	defer client.Close()

	lines := make(chan string, 4)
	go func() {
		sc := bufio.NewScanner(client)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	hub.Add(server)

	// greeting first
	select {
	case line := <-lines:
		assert.Contains(t, line, `"welcome"`)
	case <-time.After(time.Second):
		t.Fatal("no greeting received")
	}

	go hub.BroadcastJSON(ProgressEvent{Type: "progress.update", UserID: "u1", BookID: 3})
	select {
	case line := <-lines:
		assert.Contains(t, line, `"progress.update"`)
		assert.Contains(t, line, `"book_id":3`)
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}

	assert.Equal(t, 1, hub.Stats().TCPClients)
	hub.Remove(server)
	assert.Equal(t, 0, hub.Stats().TCPClients)
}

func TestHubDropsDeadConnections(t *testing.T) {
	hub := NewHub()

	server, client := net.Pipe()
	go func() {
		// consume the greeting, then hang up
		buf := make([]byte, 256)
		_, _ = client.Read(buf)
		client.Close()
	}()
	hub.Add(server)

	require.Eventually(t, func() bool {
		hub.BroadcastJSON(map[string]string{"type": "ping"})
		return hub.Stats().TCPClients == 0
	}, 2*time.Second, 50*time.Millisecond)
}
