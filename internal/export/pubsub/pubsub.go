// Package pubsub announces finished runs on a Pub/Sub topic.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"

	"github.com/JakeFAU/embed-provider-sync/internal/export"
)

// Config names the topic.
type Config struct {
	ProjectID string
	Topic     string
}

// Publisher sends one message and waits for the server id.
type Publisher interface {
	Publish(ctx context.Context, data []byte, attrs map[string]string) (string, error)
	Stop()
}

// Exporter publishes an export.Notification per run.
type Exporter struct {
	publisher Publisher
	close     func() error
}

// New connects to cfg.ProjectID and publishes to cfg.Topic.
func New(ctx context.Context, cfg Config) (*Exporter, error) {
	if cfg.ProjectID == "" || cfg.Topic == "" {
		return nil, fmt.Errorf("pubsub project id and topic are required")
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	exp := NewWithPublisher(&topicPublisher{topic: client.Topic(cfg.Topic)})
	exp.close = client.Close
	return exp, nil
}

// NewWithPublisher builds an Exporter over p.
func NewWithPublisher(p Publisher) *Exporter {
	return &Exporter{publisher: p}
}

// Name implements export.Exporter.
func (e *Exporter) Name() string { return "pubsub" }

// Export publishes the run summary as JSON.
func (e *Exporter) Export(ctx context.Context, snap export.Snapshot) error {
	if e.publisher == nil {
		return fmt.Errorf("pubsub publisher is not configured")
	}
	data, err := json.Marshal(snap.Notification())
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	attrs := map[string]string{
		"run_id":       snap.RunID.String(),
		"content_type": "application/json",
	}
	if _, err := e.publisher.Publish(ctx, data, attrs); err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// Close flushes pending publishes and releases the client.
func (e *Exporter) Close() error {
	if e == nil {
		return nil
	}
	if e.publisher != nil {
		e.publisher.Stop()
	}
	if e.close != nil {
		if err := e.close(); err != nil {
			return fmt.Errorf("close pubsub client: %w", err)
		}
	}
	return nil
}

type topicPublisher struct {
	topic *pubsub.Topic
}

func (p *topicPublisher) Publish(ctx context.Context, data []byte, attrs map[string]string) (string, error) {
	id, err := p.topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs}).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("wait for publish result: %w", err)
	}
	return id, nil
}

func (p *topicPublisher) Stop() {
	p.topic.Stop()
}
