package pubsub

import (
	"context"
	"encoding/json"

	"kit-marketplace/logger"

	"github.com/redis/go-redis/v9"
)

// Channel carries every event envelope.
const Channel = "events"

// EventItemUpdated is published by the backend when a catalog item changes.
// Its data carries the item id under "id".
const EventItemUpdated = "item_updated"

type HandlerFunc func(data map[string]interface{})

type envelope struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data"`
}

type PubSub struct {
	client *redis.Client
}

func NewPubSub(client *redis.Client) *PubSub {
	return &PubSub{client: client}
}

// Subscribe calls handler for every envelope whose event matches. It returns
// once the subscription is confirmed; delivery continues in the background
// until ctx is cancelled.
func (ps *PubSub) Subscribe(ctx context.Context, event string, handler HandlerFunc) error {
	sub := ps.client.Subscribe(ctx, Channel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return err
	}

	go func() {
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
				var payload envelope
				if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
					logger.Error.Printf("pubsub decode error: %v", err)
					continue
				}
				if payload.Event == event && payload.Data != nil {
					handler(payload.Data)
				}
			}
		}
	}()
	return nil
}

// Publish an event
func (ps *PubSub) Publish(ctx context.Context, event string, data map[string]interface{}) error {
	bytes, err := json.Marshal(envelope{Event: event, Data: data})
	if err != nil {
		return err
	}
	return ps.client.Publish(ctx, Channel, bytes).Err()
}
