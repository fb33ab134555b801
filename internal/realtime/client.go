package realtime

import "sync"

// Conn is the slice of a websocket connection the realtime layer touches.
// Satisfied by *websocket.Conn.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v interface{}) error
}

// Client adapts one websocket connection into a hub Receiver. Outbound frames
// go through a buffered channel drained by a single writer goroutine; when the
// buffer is full the frame is dropped rather than blocking the broadcaster.
type Client struct {
	conn Conn
	send chan Envelope

	closeOnce sync.Once
	done      chan struct{}
}

// NewClient wraps a websocket connection.
func NewClient(conn Conn, sendBuffer int) *Client {
	if sendBuffer <= 0 {
		sendBuffer = 32
	}
	return &Client{
		conn: conn,
		send: make(chan Envelope, sendBuffer),
		done: make(chan struct{}),
	}
}

// Receive enqueues a frame for the writer goroutine. Never blocks.
func (c *Client) Receive(env Envelope) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- env:
		return true
	default:
		return false
	}
}

// Close stops the writer loop. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// WriteLoop drains the send channel onto the socket. Runs until Close or a
// write error; the read loop notices the dead socket and tears down.
func (c *Client) WriteLoop() {
	for {
		select {
		case <-c.done:
			return
		case env := <-c.send:
			if err := c.conn.WriteJSON(env); err != nil {
				return
			}
		}
	}
}
