// Package sse streams engine notifications to presentation-layer
// clients over Server-Sent Events.
package sse

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// writeTimeout bounds a single client write so a stale connection
// cannot block a broadcast.
const writeTimeout = 2 * time.Second

// Client is one connected SSE subscriber.
type Client struct {
	ID      string
	Writer  http.ResponseWriter
	Flusher http.Flusher
	Done    chan struct{}
}

// Broadcaster fans notifications out to all connected clients.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[string]*Client
	nextID  int
	timeout time.Duration
}

// NewBroadcaster returns an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{clients: map[string]*Client{}, timeout: writeTimeout}
}

// AddClient registers a subscriber. The ResponseWriter must support
// flushing.
func (b *Broadcaster) AddClient(w http.ResponseWriter) (*Client, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	b.mu.Lock()
	b.nextID++
	client := &Client{
		ID:      fmt.Sprintf("client-%d", b.nextID),
		Writer:  w,
		Flusher: flusher,
		Done:    make(chan struct{}),
	}
	b.clients[client.ID] = client
	total := len(b.clients)
	b.mu.Unlock()

	log.Debug().Str("clientId", client.ID).Int("totalClients", total).Msg("SSE client connected")
	return client, nil
}

// RemoveClient unregisters a subscriber and releases its Done channel.
func (b *Broadcaster) RemoveClient(client *Client) {
	b.mu.Lock()
	if _, ok := b.clients[client.ID]; ok {
		delete(b.clients, client.ID)
		close(client.Done)
	}
	total := len(b.clients)
	b.mu.Unlock()

	log.Debug().Str("clientId", client.ID).Int("totalClients", total).Msg("SSE client disconnected")
}

// ClientCount returns the number of connected clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Broadcast sends an event to every connected client. Writes run
// concurrently with individual timeouts; clients that fail or time out
// are removed.
func (b *Broadcaster) Broadcast(event any) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal SSE event")
		return
	}
	message := fmt.Sprintf("data: %s\n\n", data)

	b.mu.RLock()
	clients := make([]*Client, 0, len(b.clients))
	for _, client := range b.clients {
		clients = append(clients, client)
	}
	b.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	dead := make(chan *Client, len(clients))
	var wg sync.WaitGroup
	for _, client := range clients {
		select {
		case <-client.Done:
			continue
		default:
		}
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			b.writeToClient(c, message, dead)
		}(client)
	}
	wg.Wait()
	close(dead)

	for client := range dead {
		b.RemoveClient(client)
	}
}

// writeToClient performs one bounded client write. Only writeToClient
// sends on dead: Broadcast closes that channel after the WaitGroup
// drains, and a write goroutine still stuck past the timeout must not
// touch it once its error finally surfaces. The result channel is
// buffered so a straggler can always finish and be collected.
func (b *Broadcaster) writeToClient(client *Client, message string, dead chan<- *Client) {
	result := make(chan error, 1)
	go func() {
		_, err := client.Writer.Write([]byte(message))
		if err == nil {
			client.Flusher.Flush()
		}
		result <- err
	}()

	select {
	case err := <-result:
		if err != nil {
			log.Debug().Str("clientId", client.ID).Err(err).Msg("SSE write failed")
			dead <- client
		}
	case <-time.After(b.timeout):
		log.Warn().Str("clientId", client.ID).Msg("SSE write timed out")
		dead <- client
	case <-client.Done:
	}
}

// HandleSSE serves one subscriber connection until the client goes
// away.
func (b *Broadcaster) HandleSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	client, err := b.AddClient(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer b.RemoveClient(client)

	fmt.Fprintf(w, "data: {\"type\":\"connected\",\"clientId\":%q}\n\n", client.ID)
	client.Flusher.Flush()

	<-r.Context().Done()
}
