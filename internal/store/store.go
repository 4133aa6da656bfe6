// Package store keeps the chat transcript.
package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/rudransh-shrivastava/peer-chat/internal/session"
)

// Entry is one line of the transcript.
type Entry struct {
	ID        uint   `gorm:"primaryKey"`
	Direction string `gorm:"not null;index"`
	Peer      string `gorm:"not null;index"`
	Body      string
	CreatedAt time.Time
}

type HistoryStore struct {
	db *gorm.DB
}

func NewHistoryStore(db *gorm.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// Record implements session.Recorder.
func (hs *HistoryStore) Record(ctx context.Context, rec session.Record) error {
	entry := Entry{
		Direction: string(rec.Direction),
		Peer:      rec.Peer.String(),
		Body:      rec.Body,
		CreatedAt: rec.At,
	}
	if err := hs.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("saving %s entry: %w", rec.Direction, err)
	}
	return nil
}

// Entries returns the newest limit entries, oldest first. A limit <= 0
// returns everything.
func (hs *HistoryStore) Entries(ctx context.Context, limit int) ([]Entry, error) {
	var entries []Entry

	q := hs.db.WithContext(ctx).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

func (hs *HistoryStore) EntriesWithPeer(ctx context.Context, peer string) ([]Entry, error) {
	var entries []Entry
	err := hs.db.WithContext(ctx).Where("peer = ?", peer).Order("id ASC").Find(&entries).Error
	return entries, err
}
