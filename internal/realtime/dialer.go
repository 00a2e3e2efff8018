package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebsocketDialer dials the server's /realtime endpoint and adapts the
// gorilla connection to the hub's Conn interface.
type WebsocketDialer struct {
	// URL is the full websocket URL, e.g. ws://host:8008/realtime?token=...
	URL string

	// HandshakeTimeout bounds the dial; defaults to 10s when zero.
	HandshakeTimeout time.Duration
}

type wsConn struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
}

func (d *WebsocketDialer) Dial(onMessage func(payload []byte), onClose func(err error)) (Conn, error) {
	timeout := d.HandshakeTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	dialer := websocket.Dialer{HandshakeTimeout: timeout}
	conn, _, err := dialer.Dial(d.URL, nil)
	if err != nil {
		return nil, err
	}

	c := &wsConn{conn: conn}

	conn.SetReadLimit(64 * 1024)
	conn.SetPingHandler(func(appData string) error {
		c.writeMu.Lock()
		defer c.writeMu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})

	// Reader goroutine: frames are handed to the hub in receipt order; the
	// first read error ends the connection.
	go func() {
		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				_ = conn.Close()
				onClose(err)
				return
			}
			onMessage(payload)
		}
	}()

	return c, nil
}

func (c *wsConn) Send(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
	})
	return err
}
