package broadcast

import (
	"sync"
)

// Client represents a single websocket watcher connection.
// We keep it minimal here; the actual network conn is managed in the ws handler.
type Client interface {
	Send(message []byte) bool
	Close()
}

// Hub maintains the watchers of each video and fans events out to them.
type Hub struct {
	mu               sync.RWMutex
	videoIDToClients map[int64]map[Client]struct{}
}

var hubInstance *Hub
var once sync.Once

// GetHub returns a singleton hub instance.
func GetHub() *Hub {
	once.Do(func() {
		hubInstance = &Hub{
			videoIDToClients: make(map[int64]map[Client]struct{}),
		}
	})
	return hubInstance
}

// Register adds a client as a watcher of a video.
func (h *Hub) Register(videoID int64, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.videoIDToClients[videoID]; !ok {
		h.videoIDToClients[videoID] = make(map[Client]struct{})
	}
	h.videoIDToClients[videoID][client] = struct{}{}
}

// Unregister removes a client; if the video has no more watchers, cleans up
// its map entry.
func (h *Hub) Unregister(videoID int64, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.videoIDToClients[videoID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.videoIDToClients, videoID)
		}
	}
}

// Broadcast sends a message to every watcher of a video.
func (h *Hub) Broadcast(videoID int64, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	clients := h.videoIDToClients[videoID]
	for c := range clients {
		if ok := c.Send(message); !ok {
			// client write failed; let the handler clean it up on its side
		}
	}
}

// Watchers reports how many clients are watching a video.
func (h *Hub) Watchers(videoID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.videoIDToClients[videoID])
}
