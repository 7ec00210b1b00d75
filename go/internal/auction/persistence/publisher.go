package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/auctionroom/go/internal/auction/protocol"
	"github.com/mcdev12/auctionroom/go/internal/auction/scoring"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// PublisherConfig holds configuration for the JetStream publisher
type PublisherConfig struct {
	URL           string
	StreamName    string
	SubjectPrefix string // events go to <prefix>.<room>.<kind>
	MaxAge        time.Duration
	MaxReconnects int
	ReconnectWait time.Duration
}

func DefaultPublisherConfig() PublisherConfig {
	return PublisherConfig{
		URL:           nats.DefaultURL,
		StreamName:    "AUCTION_EVENTS",
		SubjectPrefix: "auction.events",
		MaxAge:        24 * time.Hour,
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// StreamEvent is the envelope published for every recorded change
type StreamEvent struct {
	ID        string          `json:"id"`
	RoomCode  string          `json:"room_code"`
	Kind      string          `json:"kind"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// EventPublisher publishes room changes to JetStream for downstream consumers
type EventPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config PublisherConfig
}

func NewEventPublisher(ctx context.Context, config PublisherConfig) (*EventPublisher, error) {
	opts := []nats.Option{
		nats.Name("auctionroom-publisher"),
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        config.StreamName,
		Description: "Auction room snapshots, purchases and results",
		Subjects:    []string{config.SubjectPrefix + ".>"},
		MaxAge:      config.MaxAge,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream %s: %w", config.StreamName, err)
	}

	return &EventPublisher{nc: nc, js: js, config: config}, nil
}

func (p *EventPublisher) Subject(roomCode, kind string) string {
	return fmt.Sprintf("%s.%s.%s", p.config.SubjectPrefix, roomCode, kind)
}

func (p *EventPublisher) publish(ctx context.Context, roomCode, kind string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", kind, err)
	}
	ev := StreamEvent{
		ID:        uuid.New().String(),
		RoomCode:  roomCode,
		Kind:      kind,
		Timestamp: time.Now().UTC(),
		Payload:   data,
	}
	msg, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := p.Subject(roomCode, kind)
	if _, err := p.js.Publish(ctx, subject, msg, jetstream.WithMsgID(ev.ID)); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	log.Debug().Str("subject", subject).Int("size", len(msg)).Msg("published auction event")
	return nil
}

func (p *EventPublisher) SaveRoomSnapshot(ctx context.Context, roomCode string, snapshot protocol.RoomSnapshot) error {
	return p.publish(ctx, roomCode, "snapshot", snapshot)
}

func (p *EventPublisher) RecordPurchase(ctx context.Context, purchase PurchaseRecord) error {
	return p.publish(ctx, purchase.RoomCode, "purchase", purchase)
}

func (p *EventPublisher) SaveFinalResults(ctx context.Context, roomCode string, results []scoring.TeamResult) error {
	return p.publish(ctx, roomCode, "results", results)
}

// Close drains pending publishes and closes the connection
func (p *EventPublisher) Close() error {
	if err := p.nc.Drain(); err != nil {
		return fmt.Errorf("drain NATS connection: %w", err)
	}
	return nil
}
