package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/mindoraRwanda/mindorabeta/internal/domain"
	"github.com/mindoraRwanda/mindorabeta/internal/realtime"
)

// SubjectPrefix namespaces notification subjects.
const SubjectPrefix = "mindora.notifications"

// OriginHeader carries the ID of the publishing process.
const OriginHeader = "Mindora-Origin"

const relayTimeout = 5 * time.Second

// Subject returns the subject a user's notifications are published on.
func Subject(userID string) string {
	return SubjectPrefix + "." + userID
}

// NATSPublisher publishes notifications as JSON on per-user subjects and
// relays notifications published by other processes to local connections.
type NATSPublisher struct {
	conn   *nats.Conn
	origin string
}

// ConnectNATS dials url and returns a publisher.
func ConnectNATS(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("mindora"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.Timeout(5*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return NewNATSPublisher(conn), nil
}

// NewNATSPublisher wraps an existing connection under a fresh origin ID.
func NewNATSPublisher(conn *nats.Conn) *NATSPublisher {
	return &NATSPublisher{conn: conn, origin: uuid.NewString()}
}

// Publish sends n to Subject(n.UserID).
func (p *NATSPublisher) Publish(ctx context.Context, n *domain.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	msg := nats.NewMsg(Subject(n.UserID))
	msg.Header.Set(OriginHeader, p.origin)
	msg.Data = payload
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish notification %s: %w", n.ID, err)
	}
	return nil
}

// Relay subscribes to every user's subject and emits notifications that
// other processes published to the user's live connections on pusher.
// Messages this publisher sent are skipped; Notify already pushed them.
func (p *NATSPublisher) Relay(pusher Pusher) (*nats.Subscription, error) {
	sub, err := p.conn.Subscribe(SubjectPrefix+".*", func(msg *nats.Msg) {
		if msg.Header.Get(OriginHeader) == p.origin {
			return
		}
		var n domain.Notification
		if err := json.Unmarshal(msg.Data, &n); err != nil {
			slog.Warn("Dropping malformed notification", "subject", msg.Subject, "error", err)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), relayTimeout)
		defer cancel()
		delivered, err := pusher.Emit(ctx, n.UserID, realtime.EventNewNotification, &n)
		if err != nil {
			slog.Warn("Failed to relay notification", "user_id", n.UserID, "notification_id", n.ID, "error", err)
			return
		}
		slog.Debug("Notification relayed", "user_id", n.UserID, "notification_id", n.ID, "connections", delivered)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s.*: %w", SubjectPrefix, err)
	}
	return sub, nil
}

// Close flushes pending publishes and drains the connection.
func (p *NATSPublisher) Close() error {
	if err := p.conn.FlushTimeout(relayTimeout); err != nil {
		slog.Warn("NATS flush failed", "error", err)
	}
	return p.conn.Drain()
}
