package broker

import (
	"sync"

	"github.com/google/uuid"
)

// Socket is the slice of a websocket connection the broker needs. The
// gorilla *websocket.Conn satisfies it.
type Socket interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Conn is one registered alert connection. Writes are serialized because
// deliveries can arrive from concurrent ingest requests and websockets
// allow only one writer at a time.
type Conn struct {
	ID string

	mu sync.Mutex
	ws Socket
}

func NewConn(ws Socket) *Conn {
	return &Conn{
		ID: uuid.NewString(),
		ws: ws,
	}
}

func (c *Conn) Send(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.ws.WriteJSON(v)
}

func (c *Conn) Close() error {
	return c.ws.Close()
}
