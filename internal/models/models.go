package models

import "time"

type BlendMode string

const (
	BlendNormal  BlendMode = "normal"
	BlendOverlay BlendMode = "overlay"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
)

// UploadedImage is one image in the current session's selection set.
// Data is the base64-encoded blob; the struct is never mutated after creation.
type UploadedImage struct {
	ID       string `json:"id"`
	Data     string `json:"data"`
	MimeType string `json:"mime_type"`
	FileName string `json:"file_name"`
}

// PromptTemplate is a reusable natural-language instruction for the edit
// service. CategoryID is resolved once at creation time for user templates
// and empty for built-ins (their category is positional).
type PromptTemplate struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Prompt        string `json:"prompt"`
	CategoryID    string `json:"category_id,omitempty"`
	IsUserDefined bool   `json:"is_user_defined,omitempty"`
}

type TemplateCategory struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Templates   []PromptTemplate `json:"templates"`
}

// HistoryEntry records one completed edit or merge. It owns its own copies
// of the original and edited blobs so history survives clearing the session.
type HistoryEntry struct {
	ID               string `json:"id"`
	OriginalImage    string `json:"original_image"`
	OriginalMimeType string `json:"original_mime_type"`
	Prompt           string `json:"prompt"`
	EditedImage      string `json:"edited_image"`
	Timestamp        int64  `json:"timestamp"`
	TemplateName     string `json:"template_name,omitempty"`
	CategoryName     string `json:"category_name,omitempty"`
}

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	IsAdmin      bool      `json:"is_admin"`
	Credits      int       `json:"credits"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PaymentConfig is the process-wide pricing singleton, admin-editable.
type PaymentConfig struct {
	PricePerCredit     float64 `json:"price_per_credit"`
	InitialFreeCredits int     `json:"initial_free_credits"`
}

// PaymentOrder is a simulated top-up order. Orders live only in memory and
// are not persisted across restarts.
type PaymentOrder struct {
	OrderID    string        `json:"order_id"`
	UserID     string        `json:"user_id"`
	Amount     float64       `json:"amount"`
	Credits    int           `json:"credits"`
	Status     PaymentStatus `json:"status"`
	PaymentURI string        `json:"payment_uri"`
	CreatedAt  time.Time     `json:"created_at"`
}
