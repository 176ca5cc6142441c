package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/digkill/aieditor/internal/blend"
	"github.com/digkill/aieditor/internal/config"
	"github.com/digkill/aieditor/internal/gemini"
	"github.com/digkill/aieditor/internal/models"
	"github.com/digkill/aieditor/internal/session"
)

// EditClient is the generative edit collaborator.
type EditClient interface {
	EditImage(ctx context.Context, imageBlob, mimeType, prompt string) (*gemini.Image, error)
}

// EditService orchestrates the two paid operations, edit and merge. Both
// run under the session's single-edit latch and both settle through the
// one credit debit path:
// validate -> latch -> affordability precheck -> produce image ->
// debit -> best-effort history append -> install result.
type EditService struct {
	cfg     config.Config
	log     *slog.Logger
	session *session.Manager
	credits *CreditService
	history *HistoryService
	catalog *TemplateService
	client  EditClient
}

func NewEditService(cfg config.Config, log *slog.Logger, sess *session.Manager, credits *CreditService, history *HistoryService, catalog *TemplateService, client EditClient) *EditService {
	return &EditService{
		cfg:     cfg,
		log:     log,
		session: sess,
		credits: credits,
		history: history,
		catalog: catalog,
		client:  client,
	}
}

// EditRequest describes one edit of the active image.
type EditRequest struct {
	Prompt     string
	TemplateID string
}

// Edit runs the active image through the external edit service.
func (s *EditService) Edit(ctx context.Context, user *models.User, req EditRequest) (*session.Result, error) {
	prompt := strings.TrimSpace(req.Prompt)
	templateName, categoryName := "", ""

	if req.TemplateID != "" {
		tpl, err := s.catalog.Find(req.TemplateID)
		if err != nil {
			return nil, err
		}
		templateName = tpl.Name
		categoryName = s.catalog.CategoryName(tpl.CategoryID)
		if prompt == "" {
			prompt = tpl.Prompt
		}
	}
	if prompt == "" {
		return nil, fmt.Errorf("%w: prompt cannot be empty", ErrInvalidInput)
	}
	if user == nil {
		return nil, ErrUnauthorized
	}

	active, err := s.session.Active()
	if err != nil {
		return nil, fmt.Errorf("%w: upload an image first", ErrInvalidInput)
	}

	if err := s.session.BeginEdit(); err != nil {
		return nil, err
	}
	defer s.session.EndEdit()

	cost := s.cfg.EditCostCredits
	if !user.IsAdmin && !s.credits.CanAfford(user.ID, cost) {
		return nil, ErrInsufficientCredits
	}

	image, err := s.client.EditImage(ctx, active.Data, active.MimeType, prompt)
	if err != nil {
		return nil, fmt.Errorf("edit image: %w", err)
	}
	if image == nil {
		return nil, ErrNoImageReturned
	}

	if !user.IsAdmin {
		if err := s.credits.Debit(user.ID, cost); err != nil {
			return nil, err
		}
	}

	if _, err := s.history.Append(active.Data, active.MimeType, prompt, image.Data, templateName, categoryName); err != nil {
		s.log.Warn("edit completed but history append failed", "err", err)
	}

	result := session.Result{Data: image.Data, MimeType: image.Mime, Prompt: prompt}
	s.session.ProduceResult(result)
	return &result, nil
}

// MergeRequest blends an overlay upload onto the current edited result.
type MergeRequest struct {
	Overlay models.UploadedImage
	Mode    models.BlendMode
	Opacity float64
}

// Merge composites locally. It costs a credit and lands in history exactly
// like an edit.
func (s *EditService) Merge(ctx context.Context, user *models.User, req MergeRequest) (*session.Result, error) {
	if user == nil {
		return nil, ErrUnauthorized
	}
	if req.Opacity < 0 || req.Opacity > 1 {
		return nil, fmt.Errorf("%w: opacity must be within [0,1]", ErrInvalidInput)
	}
	if req.Overlay.Data == "" {
		return nil, fmt.Errorf("%w: overlay image is required", ErrInvalidInput)
	}

	base, err := s.session.Result()
	if err != nil {
		return nil, fmt.Errorf("%w: produce an edited result before merging", ErrInvalidInput)
	}

	if err := s.session.BeginEdit(); err != nil {
		return nil, err
	}
	defer s.session.EndEdit()

	cost := s.cfg.EditCostCredits
	if !user.IsAdmin && !s.credits.CanAfford(user.ID, cost) {
		return nil, ErrInsufficientCredits
	}

	merged, err := blend.Merge(base.Data, base.MimeType, req.Overlay.Data, req.Overlay.MimeType, req.Mode, req.Opacity)
	if err != nil {
		return nil, err
	}

	if !user.IsAdmin {
		if err := s.credits.Debit(user.ID, cost); err != nil {
			return nil, err
		}
	}

	prompt := fmt.Sprintf("Image merge (%s, opacity %.2f)", req.Mode, req.Opacity)
	if _, err := s.history.Append(base.Data, base.MimeType, prompt, merged, "", ""); err != nil {
		s.log.Warn("merge completed but history append failed", "err", err)
	}

	result := session.Result{Data: merged, MimeType: "image/png", Prompt: prompt}
	s.session.ProduceResult(result)
	return &result, nil
}

// Restore loads a history entry back into the session.
func (s *EditService) Restore(entryID string) error {
	entry, err := s.history.Get(entryID)
	if err != nil {
		return err
	}
	s.session.Restore(*entry)
	return nil
}
