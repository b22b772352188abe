package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"messenger-service/internal/models"
)

// fakeConn satisfies Conn without a network socket. ReadMessage serves
// scripted payloads and then reports a closed connection.
type fakeConn struct {
	mu      sync.Mutex
	writes  [][]byte
	scripts [][]byte
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.scripts) == 0 {
		return 0, nil, errors.New("connection closed")
	}
	payload := f.scripts[0]
	f.scripts = f.scripts[1:]
	return 1, payload, nil
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, data)
	return nil
}

func (f *fakeConn) Close() error { return nil }

func newTestClient(userID int) *Client {
	return NewClient(userID, &fakeConn{})
}

// drainEvents empties the client's send queue without blocking.
func drainEvents(t *testing.T, c *Client) []models.ServerEvent {
	t.Helper()
	var events []models.ServerEvent
	for {
		select {
		case payload, ok := <-c.send:
			if !ok {
				return events
			}
			var ev models.ServerEvent
			require.NoError(t, json.Unmarshal(payload, &ev))
			events = append(events, ev)
		default:
			return events
		}
	}
}

func eventsOfType(events []models.ServerEvent, eventType string) []models.ServerEvent {
	var out []models.ServerEvent
	for _, ev := range events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}
