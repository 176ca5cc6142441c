package service

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/digkill/aieditor/internal/config"
)

// SuggestClient is the prompt-suggestion collaborator.
type SuggestClient interface {
	Suggest(ctx context.Context, promptSoFar, contextText string) ([]string, error)
}

// SuggestService debounces suggestion fetches and discards stale results.
// Every request takes a fresh generation number; after the quiet period
// and again after the response arrives the number is compared against the
// latest, so only the newest keystroke's suggestions are ever applied.
// There is no shared timer handle to cancel.
type SuggestService struct {
	client   SuggestClient
	log      *slog.Logger
	debounce time.Duration
	latest   atomic.Uint64
}

func NewSuggestService(cfg config.Config, log *slog.Logger, client SuggestClient) *SuggestService {
	return &SuggestService{
		client:   client,
		log:      log,
		debounce: cfg.SuggestDebounce,
	}
}

// Fetch schedules a suggestion request for the prompt typed so far and
// calls apply with the result, unless a newer Fetch supersedes it first.
// apply runs on the background goroutine; empty results are valid and are
// applied as such.
func (s *SuggestService) Fetch(ctx context.Context, promptSoFar, contextText string, apply func([]string)) {
	gen := s.latest.Add(1)

	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.debounce):
		}
		if s.latest.Load() != gen {
			return // superseded during the quiet period
		}

		suggestions, err := s.client.Suggest(ctx, promptSoFar, contextText)
		if err != nil {
			if ctx.Err() == nil {
				s.log.Warn("suggestion fetch failed", "err", err)
			}
			return
		}
		if s.latest.Load() != gen {
			return // a newer request resolved meanwhile
		}
		if len(suggestions) > 3 {
			suggestions = suggestions[:3]
		}
		apply(suggestions)
	}()
}
