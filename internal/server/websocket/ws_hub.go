package websocket

import (
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tuncanbit/recon/internal/domain"
)

// WsHub fans reconciliation outcomes out to connected dashboard clients,
// keyed by the owning user id.
type WsHub struct {
	Clients    map[string]map[*websocket.Conn]bool
	Broadcast  chan WsMessage
	Register   chan *WsClient
	Unregister chan *WsClient
	Logger     zerolog.Logger
}

type WsClient struct {
	UserID string
	Conn   *websocket.Conn
}

type WsMessage struct {
	Type         string                     `json:"type"`
	UserID       string                     `json:"user_id"`
	Payment      *domain.PaymentRecord      `json:"payment,omitempty"`
	Subscription *domain.SubscriptionRecord `json:"subscription,omitempty"`
	Withdrawal   *domain.WithdrawalRequest  `json:"withdrawal,omitempty"`
}

func NewWsHub(logger zerolog.Logger) *WsHub {
	return &WsHub{
		Clients:    make(map[string]map[*websocket.Conn]bool),
		Broadcast:  make(chan WsMessage, 100),
		Register:   make(chan *WsClient, 100),
		Unregister: make(chan *WsClient, 100),
		Logger:     logger,
	}
}

func (h *WsHub) Run() {
	for {
		select {
		case client := <-h.Register:
			if h.Clients[client.UserID] == nil {
				h.Clients[client.UserID] = make(map[*websocket.Conn]bool)
			}
			h.Clients[client.UserID][client.Conn] = true
			h.Logger.Info().
				Str("user_id", client.UserID).
				Int("connection_count", len(h.Clients[client.UserID])).
				Msg("WebSocket client registered")

		case client := <-h.Unregister:
			if clients, ok := h.Clients[client.UserID]; ok {
				delete(clients, client.Conn)
				if len(clients) == 0 {
					delete(h.Clients, client.UserID)
				}
				client.Conn.Close()
				h.Logger.Info().
					Str("user_id", client.UserID).
					Msg("WebSocket client unregistered")
			}

		case message := <-h.Broadcast:
			if message.UserID == "" {
				continue
			}
			for conn := range h.Clients[message.UserID] {
				if err := conn.WriteJSON(message); err != nil {
					h.Logger.Warn().
						Err(err).
						Str("user_id", message.UserID).
						Str("type", message.Type).
						Msg("Failed to push update to WebSocket client")
					conn.Close()
					delete(h.Clients[message.UserID], conn)
				}
			}
		}
	}
}

// BroadcastPayment pushes a payment state change. Safe on a nil hub and
// never blocks the reconciler.
func (h *WsHub) BroadcastPayment(payment domain.PaymentRecord) {
	h.send(WsMessage{Type: "payment", UserID: payment.UserID, Payment: &payment})
}

func (h *WsHub) BroadcastSubscription(sub domain.SubscriptionRecord) {
	h.send(WsMessage{Type: "subscription", UserID: sub.UserID, Subscription: &sub})
}

func (h *WsHub) BroadcastWithdrawal(userID string, withdrawal domain.WithdrawalRequest) {
	h.send(WsMessage{Type: "withdrawal", UserID: userID, Withdrawal: &withdrawal})
}

func (h *WsHub) send(message WsMessage) {
	if h == nil {
		return
	}
	select {
	case h.Broadcast <- message:
	default:
		h.Logger.Warn().Str("type", message.Type).Msg("WebSocket broadcast buffer full, dropping update")
	}
}
