package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/digkill/aieditor/internal/models"
	"github.com/digkill/aieditor/internal/repository"
)

// ResultUploader publishes a blob and returns its public URL. Satisfied by
// storage.Uploader; nil disables sharing.
type ResultUploader interface {
	Upload(ctx context.Context, data []byte, contentType string) (string, error)
}

// HistoryService owns the append-only ledger of completed edits and
// merges. Entries own their blob copies, so history survives the user
// clearing the current session.
type HistoryService struct {
	repo     *repository.HistoryRepository
	uploader ResultUploader
	log      *slog.Logger
}

func NewHistoryService(repo *repository.HistoryRepository, uploader ResultUploader, log *slog.Logger) *HistoryService {
	return &HistoryService{repo: repo, uploader: uploader, log: log}
}

// Append records a completed operation at the head of the ledger. A
// persistence failure is logged and reported, but the caller already holds
// the finished result; history failure never rolls an edit back.
func (s *HistoryService) Append(originalBlob, originalMime, prompt, editedBlob, templateName, categoryName string) (models.HistoryEntry, error) {
	entry := models.HistoryEntry{
		ID:               uuid.NewString(),
		OriginalImage:    originalBlob,
		OriginalMimeType: originalMime,
		Prompt:           prompt,
		EditedImage:      editedBlob,
		Timestamp:        time.Now().UnixMilli(),
		TemplateName:     templateName,
		CategoryName:     categoryName,
	}
	if err := s.repo.Prepend(entry); err != nil {
		s.log.Warn("history entry not persisted, continuing", "id", entry.ID, "err", err)
		return entry, err
	}
	return entry, nil
}

// Remove deletes one entry by id. Removing an absent id is a no-op.
func (s *HistoryService) Remove(id string) error {
	return s.repo.Delete(id)
}

// List returns a snapshot of the ledger, newest first.
func (s *HistoryService) List() []models.HistoryEntry {
	return s.repo.All()
}

// Entries is a restartable iterator over the current snapshot, newest
// first.
func (s *HistoryService) Entries() iter.Seq[models.HistoryEntry] {
	snapshot := s.repo.All()
	return func(yield func(models.HistoryEntry) bool) {
		for _, e := range snapshot {
			if !yield(e) {
				return
			}
		}
	}
}

// Get returns one entry by id.
func (s *HistoryService) Get(id string) (*models.HistoryEntry, error) {
	for _, e := range s.repo.All() {
		if e.ID == id {
			entry := e
			return &entry, nil
		}
	}
	return nil, fmt.Errorf("%w: history entry %s", ErrNotFound, id)
}

// Share publishes the edited image of an entry to object storage and
// returns the public URL.
func (s *HistoryService) Share(ctx context.Context, id string) (string, error) {
	if s.uploader == nil {
		return "", fmt.Errorf("%w: sharing is not configured", ErrInvalidInput)
	}
	entry, err := s.Get(id)
	if err != nil {
		return "", err
	}
	data, err := base64.StdEncoding.DecodeString(entry.EditedImage)
	if err != nil {
		return "", fmt.Errorf("decode entry %s: %w", id, err)
	}
	url, err := s.uploader.Upload(ctx, data, "image/png")
	if err != nil {
		return "", fmt.Errorf("share entry %s: %w", id, err)
	}
	return url, nil
}
