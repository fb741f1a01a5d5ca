package main

import (
	"context"
	"errors"
	"sync"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/swapmeet-backend/pkg/db/models"
	"github.com/angelmondragon/swapmeet-backend/pkg/outbox/registry"
)

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type publisherFactory func(topic string) publisher

// buildMessage keys the message by aggregate so subscribers see one offer's or
// order's events in the order they were written.
func buildMessage(event models.OutboxEvent, resolved *registry.ResolvedEvent) *gcppubsub.Message {
	return &gcppubsub.Message{
		Data:        event.Payload,
		OrderingKey: event.AggregateID.String(),
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.Format(time.RFC3339Nano),
		},
	}
}

// topicPublishers keeps one ordered publisher per topic for the life of the
// process; each gcppubsub.Publisher owns its own batching goroutines.
type topicPublishers struct {
	open    func(topic string) *gcppubsub.Publisher
	mu      sync.Mutex
	byTopic map[string]*gcpPublisher
}

func newTopicPublishers(open func(topic string) *gcppubsub.Publisher) *topicPublishers {
	return &topicPublishers{open: open, byTopic: map[string]*gcpPublisher{}}
}

func (t *topicPublishers) get(topic string) publisher {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.byTopic[topic]; ok {
		return p
	}
	raw := t.open(topic)
	if raw == nil {
		return nil
	}
	raw.EnableMessageOrdering = true
	p := &gcpPublisher{Publisher: raw}
	t.byTopic[topic] = p
	return p
}

// stop flushes pending batches on every opened publisher.
func (t *topicPublishers) stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for topic, p := range t.byTopic {
		p.Stop()
		delete(t.byTopic, topic)
	}
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return &gcpPublishResult{
		PublishResult: p.Publisher.Publish(ctx, msg),
		publisher:     p.Publisher,
		orderingKey:   msg.OrderingKey,
	}
}

type gcpPublishResult struct {
	*gcppubsub.PublishResult
	publisher   *gcppubsub.Publisher
	orderingKey string
}

// Get resumes the ordering key after a failure; Pub/Sub pauses a key on error
// and rejects later messages for it until resumed.
func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	id, err := r.PublishResult.Get(ctx)
	if err != nil && r.orderingKey != "" {
		r.publisher.ResumePublish(r.orderingKey)
	}
	return id, err
}
