// Package session tracks the active image selection: the upload set, the
// pending edited result, the view mode, and the edit-in-flight latch. It is
// in-memory state; durable records live in the repositories.
package session

import (
	"errors"
	"sync"

	"github.com/digkill/aieditor/internal/models"
)

var (
	ErrNoActiveImage = errors.New("no active image selected")
	ErrNoResult      = errors.New("no edited result present")
	ErrEditInFlight  = errors.New("an edit is already in flight")
)

type ViewMode string

const (
	ShowOriginal ViewMode = "original"
	ShowResult   ViewMode = "result"
)

// Transform is the zoom/pan view state. Pure presentation; reset to
// identity on every image-set change and never persisted.
type Transform struct {
	Scale   float64
	OffsetX float64
	OffsetY float64
}

func identityTransform() Transform {
	return Transform{Scale: 1}
}

// Result is a produced edit or merge output, always PNG.
type Result struct {
	Data     string
	MimeType string
	Prompt   string
}

type Manager struct {
	mu           sync.Mutex
	images       []models.UploadedImage
	activeID     string
	result       *Result
	viewMode     ViewMode
	transform    Transform
	editInFlight bool
}

func NewManager() *Manager {
	return &Manager{
		viewMode:  ShowOriginal,
		transform: identityTransform(),
	}
}

// SelectImages appends the uploads to the set and makes the first newly
// added image active. Any pending result is cleared and the view returns
// to the original.
func (m *Manager) SelectImages(images []models.UploadedImage) {
	if len(images) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.images = append(m.images, images...)
	m.activeID = images[0].ID
	m.result = nil
	m.viewMode = ShowOriginal
	m.transform = identityTransform()
}

// ClearImage removes one image by id, or every image when id is empty. If
// the active image goes away the result is dropped with it.
func (m *Manager) ClearImage(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		m.images = nil
		m.activeID = ""
		m.result = nil
		m.viewMode = ShowOriginal
		m.transform = identityTransform()
		return
	}

	kept := m.images[:0]
	for _, img := range m.images {
		if img.ID != id {
			kept = append(kept, img)
		}
	}
	m.images = kept
	if m.activeID == id {
		m.activeID = ""
		m.result = nil
		m.viewMode = ShowOriginal
	}
	m.transform = identityTransform()
}

// SetActive switches the active image to an already-selected upload.
func (m *Manager) SetActive(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, img := range m.images {
		if img.ID == id {
			m.activeID = id
			m.result = nil
			m.viewMode = ShowOriginal
			m.transform = identityTransform()
			return nil
		}
	}
	return ErrNoActiveImage
}

// Active returns the currently selected image.
func (m *Manager) Active() (models.UploadedImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.activeID == "" {
		return models.UploadedImage{}, ErrNoActiveImage
	}
	for _, img := range m.images {
		if img.ID == m.activeID {
			return img, nil
		}
	}
	return models.UploadedImage{}, ErrNoActiveImage
}

// Images returns a snapshot of the upload set.
func (m *Manager) Images() []models.UploadedImage {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.UploadedImage, len(m.images))
	copy(out, m.images)
	return out
}

// ProduceResult installs a new edited result and flips the view to it.
func (m *Manager) ProduceResult(res Result) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.result = &res
	m.viewMode = ShowResult
}

// Result returns the pending edited result, if any.
func (m *Manager) Result() (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.result == nil {
		return Result{}, ErrNoResult
	}
	return *m.result, nil
}

// Restore loads a history entry back into the session: original, result
// and prompt are set atomically. Template and category are deliberately
// not restored; a raw prompt may not map back to exactly one template.
func (m *Manager) Restore(entry models.HistoryEntry) models.UploadedImage {
	img := models.UploadedImage{
		ID:       entry.ID,
		Data:     entry.OriginalImage,
		MimeType: entry.OriginalMimeType,
		FileName: "history",
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.images = append(m.images, img)
	m.activeID = img.ID
	m.result = &Result{Data: entry.EditedImage, MimeType: "image/png", Prompt: entry.Prompt}
	m.viewMode = ShowResult
	m.transform = identityTransform()
	return img
}

// SetViewMode switches between original and result. Switching to the
// result while none exists is rejected as a no-op.
func (m *Manager) SetViewMode(mode ViewMode) ViewMode {
	m.mu.Lock()
	defer m.mu.Unlock()

	if mode == ShowResult && m.result == nil {
		return m.viewMode
	}
	m.viewMode = mode
	return m.viewMode
}

func (m *Manager) ViewMode() ViewMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewMode
}

// SetTransform stores the zoom/pan state for the current view.
func (m *Manager) SetTransform(t Transform) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transform = t
}

func (m *Manager) Transform() Transform {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transform
}

// BeginEdit acquires the single-edit latch. It fails with ErrEditInFlight
// if another edit has begun and not yet ended, which is what prevents a
// double debit rather than any UI disabling.
func (m *Manager) BeginEdit() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.editInFlight {
		return ErrEditInFlight
	}
	m.editInFlight = true
	return nil
}

// EndEdit releases the latch.
func (m *Manager) EndEdit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.editInFlight = false
}

// Empty reports whether no images are selected.
func (m *Manager) Empty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.images) == 0
}
