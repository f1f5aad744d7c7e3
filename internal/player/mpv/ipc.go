package mpv

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/PizzaHomicide/anistream/internal/log"
)

// ErrClosed is returned by commands sent after the connection to mpv was lost
var ErrClosed = errors.New("mpv connection closed")

// message is one line of the mpv JSON IPC protocol.  Replies carry a request id, events carry an event name.
type message struct {
	Event     string          `json:"event,omitempty"`
	ID        int             `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	FileError string          `json:"file_error,omitempty"`
	RequestID int             `json:"request_id,omitempty"`
	Error     string          `json:"error,omitempty"`
}

type request struct {
	Command   []any `json:"command"`
	RequestID int   `json:"request_id"`
}

// ipcClient talks to a running mpv instance.  Commands wait for their reply, events are delivered on a channel.
type ipcClient struct {
	conn    net.Conn
	timeout time.Duration

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  int
	pending map[int]chan message
	closed  bool

	events chan message
	done   chan struct{}
}

func newIPCClient(conn net.Conn, timeout time.Duration) *ipcClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	c := &ipcClient{
		conn:    conn,
		timeout: timeout,
		pending: map[int]chan message{},
		events:  make(chan message, 256),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Events returns the channel of mpv events.  It is closed when the connection goes away.
func (c *ipcClient) Events() <-chan message {
	return c.events
}

// Command runs an mpv command and returns the data of its reply
func (c *ipcClient) Command(args ...any) (json.RawMessage, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.nextID++
	id := c.nextID
	reply := make(chan message, 1)
	c.pending[id] = reply
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	data, err := json.Marshal(request{Command: args, RequestID: id})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal command: %w", err)
	}
	data = append(data, '\n')

	c.writeMu.Lock()
	_, err = c.conn.Write(data)
	c.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to send command: %w", err)
	}

	log.Trace("Sent mpv command", "command", args, "request_id", id)

	select {
	case msg, ok := <-reply:
		if !ok {
			return nil, ErrClosed
		}
		if msg.Error != "" && msg.Error != "success" {
			return nil, fmt.Errorf("mpv %v: %s", args[0], msg.Error)
		}
		return msg.Data, nil
	case <-c.done:
		return nil, ErrClosed
	case <-time.After(c.timeout):
		return nil, fmt.Errorf("mpv %v: no reply after %s", args[0], c.timeout)
	}
}

// SetProperty sets an mpv property
func (c *ipcClient) SetProperty(name string, value any) error {
	_, err := c.Command("set_property", name, value)
	return err
}

// ObserveProperty asks mpv to send a property-change event whenever name changes
func (c *ipcClient) ObserveProperty(id int, name string) error {
	_, err := c.Command("observe_property", id, name)
	return err
}

// Close closes the connection.  The read loop exits and pending commands fail with ErrClosed.
func (c *ipcClient) Close() error {
	return c.conn.Close()
}

// readLoop continuously reads lines from mpv and routes them to the waiting command or the events channel
func (c *ipcClient) readLoop() {
	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		log.Trace("Raw mpv message", "data", string(line))

		var msg message
		if err := json.Unmarshal(line, &msg); err != nil {
			log.Warn("Failed to unmarshal mpv message", "error", err)
			continue
		}

		if msg.Event == "" && msg.RequestID != 0 {
			c.mu.Lock()
			reply, ok := c.pending[msg.RequestID]
			c.mu.Unlock()
			if ok {
				reply <- msg
			}
			continue
		}

		if msg.Event != "" {
			c.events <- msg
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		log.Warn("Error reading from mpv socket", "error", err)
	}
	log.Debug("mpv reader stopped")

	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	close(c.done)
	close(c.events)
}
