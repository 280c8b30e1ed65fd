// Package history keeps the local, capacity-bounded log of recently viewed
// catalog items.
//
// Entries are unique by item id and ranked only by the time they were last
// recorded; reading the history never changes the ranking. At most
// MaxEntries rows survive any committed write.
package history

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"kit-marketplace/logger"
	"kit-marketplace/models"

	"github.com/getsentry/sentry-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaxEntries is the number of entries kept after every write.
const MaxEntries = 20

// recencyOrder is shared by reads and the trim so that the retained set is
// always exactly the listed set. Equal timestamps fall back to id order.
const recencyOrder = "viewed_at DESC, id ASC"

// ErrStorage wraps every failure of the underlying local database.
var ErrStorage = errors.New("history: storage failure")

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now as the source of viewedAt timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store is the view-history store. One instance is shared by the whole
// process; the database handle it wraps must be limited to a single
// connection (see config.OpenHistoryDB) so that transactions never overlap.
type Store struct {
	db  *gorm.DB
	now func() time.Time
	seq atomic.Uint64
	hub *hub
}

// NewStore wraps db and loads the current history so that subscribers can be
// served immediately.
func NewStore(ctx context.Context, db *gorm.DB, opts ...Option) (*Store, error) {
	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	items, err := s.ListHistory(ctx)
	if err != nil {
		return nil, err
	}
	s.hub = newHub(items)
	return s, nil
}

// RecordView inserts or replaces the entry for item with a fresh snapshot
// stamped with the current time, then trims the history to MaxEntries. Both
// steps commit together.
func (s *Store) RecordView(ctx context.Context, item models.Item) error {
	row := models.NewViewedItem(item, s.now().UnixMilli())
	return s.mutate(ctx, "record view", func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(&row).Error
		if err != nil {
			return err
		}
		return trimToCapacity(tx)
	})
}

// ClearHistory deletes every entry.
func (s *Store) ClearHistory(ctx context.Context) error {
	return s.mutate(ctx, "clear history", func(tx *gorm.DB) error {
		return tx.Session(&gorm.Session{AllowGlobalUpdate: true}).
			Delete(&models.ViewedItem{}).Error
	})
}

// ListHistory returns the current entries, most recent first.
func (s *Store) ListHistory(ctx context.Context) ([]models.ViewedItem, error) {
	items := []models.ViewedItem{}
	if err := orderedList(s.db.WithContext(ctx), &items); err != nil {
		return nil, s.fail("list history", err)
	}
	return items, nil
}

// Count returns the number of stored entries.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.ViewedItem{}).Count(&n).Error; err != nil {
		return 0, s.fail("count history", err)
	}
	return n, nil
}

// Ping checks that the local database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return s.fail("ping", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return s.fail("ping", err)
	}
	return nil
}

// Subscribe returns a live feed of the history. The current list is delivered
// first, then the full ordered list after every committed write, until the
// subscription is cancelled or the store is closed.
func (s *Store) Subscribe() *Subscription {
	return s.hub.subscribe()
}

// Close ends all subscriptions and closes the database.
func (s *Store) Close() error {
	s.hub.close()
	sqlDB, err := s.db.DB()
	if err != nil {
		return s.fail("close", err)
	}
	if err := sqlDB.Close(); err != nil {
		return s.fail("close", err)
	}
	return nil
}

// mutate runs fn in a transaction, reads back the ordered list inside the same
// transaction and hands it to the subscribers once the commit has settled.
func (s *Store) mutate(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	var (
		items   = []models.ViewedItem{}
		version uint64
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := fn(tx); err != nil {
			return err
		}
		if err := orderedList(tx, &items); err != nil {
			return err
		}
		version = s.seq.Add(1)
		return nil
	})
	if err != nil {
		if version != 0 {
			// the commit itself failed after a version was taken
			s.hub.settle(version, nil, false)
		}
		return s.fail(op, err)
	}
	s.hub.settle(version, items, true)
	return nil
}

// trimToCapacity deletes every row outside the MaxEntries most recent ones.
func trimToCapacity(tx *gorm.DB) error {
	keep := tx.Model(&models.ViewedItem{}).
		Select("id").
		Order(recencyOrder).
		Limit(MaxEntries)
	return tx.Where("id NOT IN (?)", keep).Delete(&models.ViewedItem{}).Error
}

func orderedList(db *gorm.DB, items *[]models.ViewedItem) error {
	return db.Order(recencyOrder).Limit(MaxEntries).Find(items).Error
}

func (s *Store) fail(op string, err error) error {
	wrapped := fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
	logger.Error.Printf("history %s failed: %v", op, err)
	if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		sentry.CaptureException(wrapped)
	}
	return wrapped
}
