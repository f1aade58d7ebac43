package websocket

import (
	"encoding/json"
	"log"

	"github.com/vrsandeep/filebox/internal/models"
)

// Hub maintains the set of active clients and the subscriber rooms they
// joined. Every map is owned by the goroutine running Run, so register,
// join, publish and broadcast requests are applied in the order they
// arrive and each client's messages keep that order.
type Hub struct {
	clients map[*Client]bool
	rooms   map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	join       chan subscription
	publish    chan roomMessage
	broadcast  chan []byte
	queries    chan roomQuery
	quit       chan struct{}
}

type subscription struct {
	client       *Client
	subscriberID string
}

type roomMessage struct {
	subscriberID string
	payload      []byte
}

type roomQuery struct {
	subscriberID string
	reply        chan int
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan subscription),
		publish:    make(chan roomMessage, 256),
		broadcast:  make(chan []byte, 256),
		queries:    make(chan roomQuery),
		quit:       make(chan struct{}),
	}
}

// Run processes hub requests until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true

		case client := <-h.unregister:
			h.removeClient(client)

		case sub := <-h.join:
			if !h.clients[sub.client] {
				continue
			}
			room, ok := h.rooms[sub.subscriberID]
			if !ok {
				room = make(map[*Client]bool)
				h.rooms[sub.subscriberID] = room
			}
			room[sub.client] = true
			if sub.client.rooms == nil {
				sub.client.rooms = make(map[string]bool)
			}
			sub.client.rooms[sub.subscriberID] = true

		case msg := <-h.publish:
			for client := range h.rooms[msg.subscriberID] {
				h.deliver(client, msg.payload)
			}

		case payload := <-h.broadcast:
			for client := range h.clients {
				h.deliver(client, payload)
			}

		case q := <-h.queries:
			q.reply <- len(h.rooms[q.subscriberID])

		case <-h.quit:
			for client := range h.clients {
				h.removeClient(client)
			}
			return
		}
	}
}

// Stop makes Run return after closing every client.
func (h *Hub) Stop() {
	close(h.quit)
}

// deliver queues payload on the client's send buffer. A client that cannot
// keep up is dropped rather than stalling every other subscriber.
func (h *Hub) deliver(client *Client, payload []byte) {
	select {
	case client.send <- payload:
	default:
		log.Printf("websocket client send buffer full, dropping connection")
		h.removeClient(client)
	}
}

func (h *Hub) removeClient(client *Client) {
	if !h.clients[client] {
		return
	}
	delete(h.clients, client)
	for id := range client.rooms {
		if room, ok := h.rooms[id]; ok {
			delete(room, client)
			if len(room) == 0 {
				delete(h.rooms, id)
			}
		}
	}
	close(client.send)
}

// Subscribe puts client into the room for subscriberID. Subscribing the
// same client twice has no further effect.
func (h *Hub) Subscribe(client *Client, subscriberID string) {
	select {
	case h.join <- subscription{client: client, subscriberID: subscriberID}:
	case <-h.quit:
	}
}

// Publish sends event to every connection subscribed to subscriberID. The
// event is dropped when nobody is subscribed; there is no replay.
func (h *Hub) Publish(subscriberID string, event models.ProgressEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to encode event for subscriber %s: %v", subscriberID, err)
		return
	}
	select {
	case h.publish <- roomMessage{subscriberID: subscriberID, payload: payload}:
	case <-h.quit:
	}
}

// BroadcastJSON sends v to every connected client.
func (h *Hub) BroadcastJSON(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("Failed to encode broadcast message: %v", err)
		return
	}
	select {
	case h.broadcast <- payload:
	case <-h.quit:
	}
}

// Subscribers returns how many connections are in the room for subscriberID.
func (h *Hub) Subscribers(subscriberID string) int {
	reply := make(chan int, 1)
	select {
	case h.queries <- roomQuery{subscriberID: subscriberID, reply: reply}:
		return <-reply
	case <-h.quit:
		return 0
	}
}
