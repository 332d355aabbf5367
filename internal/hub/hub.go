// Package hub fans call announcements out to the waiting-room display
// screens over SockJS. Displays are public; a screen either follows one
// service or everything.
package hub

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/Dinhtoai1/layso/internal/queue"
	"github.com/Dinhtoai1/layso/internal/registry"

	"github.com/google/uuid"
	"github.com/igm/sockjs-go/sockjs"
)

type Subscription struct {
	Service string
}

type Client struct {
	ID           string
	Send         chan []byte
	Subscription Subscription
}

type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

type SubscribeMessage struct {
	Action  string `json:"action"`
	Service string `json:"service"`
}

func New() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, client.ID)
	close(client.Send)
}

func (h *Hub) UpdateSubscription(client *Client, sub Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	client.Subscription = sub
}

// Broadcast drops messages for slow clients instead of blocking the
// caller; a display that misses one call picks up the next.
func (h *Hub) Broadcast(payload []byte, service string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if client.Subscription.Service != "" && client.Subscription.Service != service {
			continue
		}
		select {
		case client.Send <- payload:
		default:
			log.Printf("drop message for client %s", client.ID)
		}
	}
}

// NotifyCall implements queue.Notifier.
func (h *Hub) NotifyCall(event queue.CallEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	h.Broadcast(payload, event.Service)
}

func ParseSubscribe(data []byte) (SubscribeMessage, bool) {
	var msg SubscribeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return SubscribeMessage{}, false
	}
	if msg.Action != "subscribe" && msg.Action != "unsubscribe" {
		return SubscribeMessage{}, false
	}
	return msg, true
}

// Handler serves the SockJS endpoint under prefix. A fresh connection
// receives every call until it narrows itself with a subscribe message.
func (h *Hub) Handler(prefix string) http.Handler {
	return sockjs.NewHandler(prefix, sockjs.DefaultOptions, func(session sockjs.Session) {
		client := &Client{ID: uuid.NewString(), Send: make(chan []byte, 16)}
		h.Register(client)
		defer h.Unregister(client)

		go func() {
			for msg := range client.Send {
				_ = session.Send(string(msg))
			}
		}()

		for {
			msg, err := session.Recv()
			if err != nil {
				return
			}
			parsed, ok := ParseSubscribe([]byte(msg))
			if !ok {
				continue
			}
			if parsed.Action == "unsubscribe" {
				h.UpdateSubscription(client, Subscription{})
				continue
			}
			desc, err := registry.Resolve(parsed.Service)
			if err != nil {
				continue
			}
			h.UpdateSubscription(client, Subscription{Service: desc.Name})
		}
	})
}
