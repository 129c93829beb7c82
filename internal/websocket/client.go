package websocket

import (
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// socketClient wraps one upgraded connection. Writes are serialised
// with a mutex as gorilla permits only one concurrent writer.
type socketClient struct {
	id     *uuid.UUID
	socket *websocket.Conn
	mu     sync.Mutex
}

func (client *socketClient) SendMessage(message *SocketMessage) error {
	client.mu.Lock()
	defer client.mu.Unlock()

	return client.socket.WriteJSON(message)
}

// Read drains inbound frames until the connection closes. The activity
// socket is push-only; anything the client sends is discarded.
func (client *socketClient) Read() error {
	for {
		if _, _, err := client.socket.ReadMessage(); err != nil {
			return err
		}
	}
}

func (client *socketClient) Close() error {
	return client.socket.Close()
}
