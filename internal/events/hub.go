package events

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/dhkim/storefront-gateway/pkg/logger"
	gwredis "github.com/dhkim/storefront-gateway/pkg/redis"
	"github.com/google/uuid"
)

// CartUpdate tells mounted consumers that the persisted cart for Owner
// changed and must be re-read. Consumers never receive cart contents over
// this channel; they re-read from the store, which is the source of truth.
type CartUpdate struct {
	Type     string `json:"type"`
	Owner    string `json:"owner"`
	Reason   string `json:"reason"`
	Instance string `json:"instance,omitempty"`
}

const cartUpdatedType = "cart.updated"

// Hub fans cart-changed notifications out to subscribed connections.
// Owners are opaque keys ("guest:<id>" or "user:<id>"); one owner may have
// several live connections (multiple tabs or devices).
type Hub struct {
	// subscribers per owner key
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client
	notify     chan CartUpdate

	// instance identifies this process on the cross-instance channel so
	// relayed copies of its own publishes are dropped
	instance string

	mu sync.RWMutex
}

// NewHub creates a notification hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string][]*Client),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		notify:     make(chan CartUpdate, 1024),
		instance:   uuid.NewString(),
	}
}

// Run processes registrations and notifications until the context ends.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.Owner] = append(h.clients[client.Owner], client)
			h.mu.Unlock()
			logger.Debug("Cart update subscriber registered", map[string]interface{}{
				"owner": client.Owner,
			})

		case client := <-h.unregister:
			h.mu.Lock()
			if list, ok := h.clients[client.Owner]; ok {
				newList := make([]*Client, 0, len(list))
				for _, c := range list {
					if c != client {
						newList = append(newList, c)
					}
				}
				if len(newList) == 0 {
					delete(h.clients, client.Owner)
				} else {
					h.clients[client.Owner] = newList
				}
				close(client.Send)
			}
			h.mu.Unlock()
			logger.Debug("Cart update subscriber unregistered", map[string]interface{}{
				"owner": client.Owner,
			})

		case update := <-h.notify:
			h.deliver(update)
		}
	}
}

func (h *Hub) deliver(update CartUpdate) {
	data, err := json.Marshal(update)
	if err != nil {
		logger.Error("Failed to marshal cart update", err, nil)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients[update.Owner] {
		select {
		case client.Send <- data:
		default:
			// send buffer full; drop rather than block the hub
			logger.Warn("Subscriber send buffer full, dropping cart update", map[string]interface{}{
				"owner": update.Owner,
			})
		}
	}
}

// Register subscribes a connection to its owner's cart updates.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a connection.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Publish notifies local subscribers that the owner's cart changed and
// relays the event to other gateway instances over Redis. Notification
// loss is tolerated; a cart mutation never fails because of it.
func (h *Hub) Publish(ctx context.Context, owner, reason string) {
	update := CartUpdate{
		Type:   cartUpdatedType,
		Owner:  owner,
		Reason: reason,
	}

	select {
	case h.notify <- update:
	default:
		logger.Warn("Notify channel full, cart update dropped", map[string]interface{}{
			"owner": owner,
		})
	}

	update.Instance = h.instance
	if data, err := json.Marshal(update); err == nil {
		gwredis.PublishCartUpdate(ctx, data)
	}
}

// RunRedisBridge relays cart updates published by other gateway instances
// into the local hub. Returns immediately when Redis is unavailable.
func (h *Hub) RunRedisBridge(ctx context.Context) {
	sub := gwredis.SubscribeCartUpdates(ctx)
	if sub == nil {
		logger.Info("Redis unavailable, cart updates stay instance-local", nil)
		return
	}
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var update CartUpdate
			if err := json.Unmarshal([]byte(msg.Payload), &update); err != nil {
				logger.Warn("Dropping malformed cart update", map[string]interface{}{
					"error": err.Error(),
				})
				continue
			}
			if update.Instance == h.instance {
				// our own publish, already delivered locally
				continue
			}
			h.deliver(update)
		}
	}
}
