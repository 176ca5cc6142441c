package repository

import (
	"fmt"

	"github.com/digkill/aieditor/internal/models"
	"github.com/digkill/aieditor/internal/store"
)

const historyKey = "history"

// HistoryRepository persists the edit history ledger, newest first.
type HistoryRepository struct {
	store *store.Store
}

func NewHistoryRepository(s *store.Store) *HistoryRepository {
	return &HistoryRepository{store: s}
}

func (r *HistoryRepository) All() []models.HistoryEntry {
	var entries []models.HistoryEntry
	r.store.GetOr(historyKey, &entries)
	return entries
}

func (r *HistoryRepository) SaveAll(entries []models.HistoryEntry) error {
	if err := r.store.Put(historyKey, entries); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

// Prepend inserts the entry at the head so iteration stays newest-first.
func (r *HistoryRepository) Prepend(entry models.HistoryEntry) error {
	entries := r.All()
	return r.SaveAll(append([]models.HistoryEntry{entry}, entries...))
}

// Delete removes one entry by id; absent ids are a no-op.
func (r *HistoryRepository) Delete(id string) error {
	entries := r.All()
	kept := entries[:0]
	for _, e := range entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	return r.SaveAll(kept)
}
