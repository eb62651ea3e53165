package main

import (
	"context"
	"errors"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type topicSource interface {
	Ping(context.Context) error
	Publisher(topic string) *gcppubsub.Publisher
}

// topicPublishers adapts the Pub/Sub client to the relay's publisher
// factory.
func topicPublishers(src topicSource) func(topic string) publisher {
	return func(topic string) publisher {
		p := src.Publisher(topic)
		if p == nil {
			return nil
		}
		return gcpPublisher{p}
	}
}

type gcpPublisher struct{ p *gcppubsub.Publisher }

func (g gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	res := g.p.Publish(ctx, msg)
	if res == nil {
		return nil
	}
	return gcpResult{res}
}

type gcpResult struct{ r *gcppubsub.PublishResult }

func (g gcpResult) Get(ctx context.Context) (string, error) {
	if g.r == nil {
		return "", errors.New("publish result is nil")
	}
	return g.r.Get(ctx)
}
