// Package events publishes domain events to NATS for downstream consumers
// (feeds, notifications, search indexing).
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	BlogCreated    = "blog.created"
	BlogPublished  = "blog.published"
	BlogLiked      = "blog.liked"
	CommentCreated = "comment.created"
	UserFollowed   = "user.followed"
)

// Event is the envelope of every message.
type Event struct {
	Type       string     `json:"type"`
	ActorID    uuid.UUID  `json:"actor_id"`
	BlogID     *uuid.UUID `json:"blog_id,omitempty"`
	CommentID  *uuid.UUID `json:"comment_id,omitempty"`
	TargetID   *uuid.UUID `json:"target_id,omitempty"`
	LikeCount  *int64     `json:"like_count,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// Publisher is fire-and-forget: a failed publish is logged, never returned to the caller.
type Publisher interface {
	Publish(event Event)
}

type Noop struct{}

func (Noop) Publish(Event) {}

type conn interface {
	Publish(subject string, data []byte) error
}

type NATSPublisher struct {
	conn   conn
	prefix string
	logger zerolog.Logger
}

// Connect dials NATS. Subjects are "<prefix>.<event type>".
func Connect(url, prefix string) (*NATSPublisher, *nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("inkwell-backend"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats disconnected")
			}
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	return newNATSPublisher(nc, prefix), nc, nil
}

func newNATSPublisher(c conn, prefix string) *NATSPublisher {
	if prefix == "" {
		prefix = "inkwell"
	}
	return &NATSPublisher{
		conn:   c,
		prefix: prefix,
		logger: log.With().Str("component", "events").Logger(),
	}
}

func (p *NATSPublisher) Subject(eventType string) string {
	return p.prefix + "." + eventType
}

func (p *NATSPublisher) Publish(event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error().Err(err).Str("type", event.Type).Msg("encode event")
		return
	}
	if err := p.conn.Publish(p.Subject(event.Type), data); err != nil {
		p.logger.Warn().Err(err).Str("type", event.Type).Msg("publish event")
	}
}

var (
	_ Publisher = Noop{}
	_ Publisher = (*NATSPublisher)(nil)
)
