// Command catalog-publisher seeds catalog item documents into Redis and
// announces each one with an item_updated event, standing in for the backend
// during local development.
//
// Usage: catalog-publisher items.json
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"kit-marketplace/cache"
	"kit-marketplace/catalog"
	"kit-marketplace/config"
	"kit-marketplace/models"
	"kit-marketplace/pubsub"
)

func main() {
	if len(os.Args) != 2 {
		log.Fatalf("usage: %s items.json", os.Args[0])
	}
	config.Load()
	cfg := config.FromEnv()

	items, err := readItems(os.Args[1])
	if err != nil {
		log.Fatalf("Failed to read items: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rdb, err := cache.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	cat := catalog.NewClient(rdb, nil)
	ps := pubsub.NewPubSub(rdb)

	for _, item := range items {
		if item.UpdatedAt.IsZero() {
			item.UpdatedAt = time.Now().UTC()
		}
		if err := cat.PutItem(ctx, item); err != nil {
			log.Printf("Failed to write %s: %v", item.ID, err)
			continue
		}
		if err := ps.Publish(ctx, pubsub.EventItemUpdated, map[string]interface{}{"id": item.ID}); err != nil {
			log.Printf("Failed to publish %s: %v", item.ID, err)
			continue
		}
		log.Printf("Published %s (%s)", item.ID, item.Title)
	}
}

func readItems(path string) ([]models.Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var items []models.Item
	if err := json.NewDecoder(f).Decode(&items); err != nil {
		return nil, err
	}
	return items, nil
}
