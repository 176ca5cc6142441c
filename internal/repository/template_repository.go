package repository

import (
	"fmt"

	"github.com/digkill/aieditor/internal/models"
	"github.com/digkill/aieditor/internal/store"
)

const userTemplatesKey = "user_templates"

// TemplateRepository persists the flat pool of user-defined templates.
// Built-in templates are constant data and never go through here.
type TemplateRepository struct {
	store *store.Store
}

func NewTemplateRepository(s *store.Store) *TemplateRepository {
	return &TemplateRepository{store: s}
}

func (r *TemplateRepository) All() []models.PromptTemplate {
	var templates []models.PromptTemplate
	r.store.GetOr(userTemplatesKey, &templates)
	return templates
}

func (r *TemplateRepository) SaveAll(templates []models.PromptTemplate) error {
	if err := r.store.Put(userTemplatesKey, templates); err != nil {
		return fmt.Errorf("save user templates: %w", err)
	}
	return nil
}

func (r *TemplateRepository) Append(t models.PromptTemplate) error {
	return r.SaveAll(append(r.All(), t))
}

// Delete removes one user template by id; absent ids are a no-op.
func (r *TemplateRepository) Delete(id string) error {
	templates := r.All()
	kept := templates[:0]
	for _, t := range templates {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	return r.SaveAll(kept)
}
