package service

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/digkill/aieditor/internal/models"
	"github.com/digkill/aieditor/internal/repository"
)

// TemplateService exposes the catalog: the built-in categories unioned
// with the persisted pool of user-defined templates.
type TemplateService struct {
	repo *repository.TemplateRepository
	log  *slog.Logger
}

func NewTemplateService(repo *repository.TemplateRepository, log *slog.Logger) *TemplateService {
	return &TemplateService{repo: repo, log: log}
}

// Categories returns the built-in categories in declaration order, with
// user templates appended under the category they were tagged with. The
// untagged rest land in a trailing synthetic category.
func (s *TemplateService) Categories() []models.TemplateCategory {
	out := make([]models.TemplateCategory, len(models.BuiltinCategories))
	for i, cat := range models.BuiltinCategories {
		out[i] = cat
		out[i].Templates = append([]models.PromptTemplate(nil), cat.Templates...)
	}

	var untagged []models.PromptTemplate
	for _, t := range s.userTemplates() {
		placed := false
		for i := range out {
			if out[i].ID == t.CategoryID {
				out[i].Templates = append(out[i].Templates, t)
				placed = true
				break
			}
		}
		if !placed {
			untagged = append(untagged, t)
		}
	}
	if len(untagged) > 0 {
		out = append(out, models.TemplateCategory{
			ID:          "custom-templates",
			Name:        "Custom Templates",
			Description: "Your own saved prompts",
			Templates:   untagged,
		})
	}
	return out
}

// AllTemplates flattens built-ins and the user pool, deduplicated by id.
func (s *TemplateService) AllTemplates() []models.PromptTemplate {
	seen := make(map[string]bool)
	var out []models.PromptTemplate
	for _, cat := range models.BuiltinCategories {
		for _, t := range cat.Templates {
			if !seen[t.ID] {
				seen[t.ID] = true
				out = append(out, t)
			}
		}
	}
	for _, t := range s.userTemplates() {
		if !seen[t.ID] {
			seen[t.ID] = true
			out = append(out, t)
		}
	}
	return out
}

// Find returns the template with the given id from either pool.
func (s *TemplateService) Find(id string) (*models.PromptTemplate, error) {
	for _, t := range s.AllTemplates() {
		if t.ID == id {
			tpl := t
			return &tpl, nil
		}
	}
	return nil, fmt.Errorf("%w: template %s", ErrNotFound, id)
}

// CategoryName resolves a category id to its display name.
func (s *TemplateService) CategoryName(categoryID string) string {
	for _, cat := range s.Categories() {
		if cat.ID == categoryID {
			return cat.Name
		}
	}
	return ""
}

// AddUserTemplate creates a user-defined template with a fresh id. The
// category tag is resolved and persisted now, not recomputed later. An id
// collision with any existing template is rejected, never shadowed.
func (s *TemplateService) AddUserTemplate(name, description, prompt, categoryID string) (*models.PromptTemplate, error) {
	name = strings.TrimSpace(name)
	prompt = strings.TrimSpace(prompt)
	if name == "" || prompt == "" {
		return nil, fmt.Errorf("%w: template name and prompt are required", ErrInvalidInput)
	}
	if categoryID != "" && s.CategoryName(categoryID) == "" {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, categoryID)
	}

	tpl := models.PromptTemplate{
		ID:            uuid.NewString(),
		Name:          name,
		Description:   strings.TrimSpace(description),
		Prompt:        prompt,
		CategoryID:    categoryID,
		IsUserDefined: true,
	}
	if s.exists(tpl.ID) {
		return nil, fmt.Errorf("%w: template id %s already exists", ErrInvalidInput, tpl.ID)
	}
	if err := s.repo.Append(tpl); err != nil {
		return nil, err
	}
	return &tpl, nil
}

// DeleteUserTemplate removes a user template. Built-ins cannot be deleted.
func (s *TemplateService) DeleteUserTemplate(id string) error {
	for _, t := range s.userTemplates() {
		if t.ID == id {
			return s.repo.Delete(id)
		}
	}
	return fmt.Errorf("%w: user template %s", ErrNotFound, id)
}

// userTemplates loads the persisted pool, dropping anything whose id
// collides with a built-in. Fresh ids are uuids, so a collision only
// arises from imported or corrupt data.
func (s *TemplateService) userTemplates() []models.PromptTemplate {
	builtin := make(map[string]bool)
	for _, cat := range models.BuiltinCategories {
		for _, t := range cat.Templates {
			builtin[t.ID] = true
		}
	}

	var out []models.PromptTemplate
	for _, t := range s.repo.All() {
		if builtin[t.ID] {
			s.log.Warn("user template shadows a built-in id, skipped", "id", t.ID)
			continue
		}
		out = append(out, t)
	}
	return out
}

func (s *TemplateService) exists(id string) bool {
	for _, t := range s.AllTemplates() {
		if t.ID == id {
			return true
		}
	}
	return false
}
