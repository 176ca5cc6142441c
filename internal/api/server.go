// Package api is the JSON surface the editing client talks to: auth,
// uploads, edits, merges, templates, history, suggestions and the
// simulated payment flow. Rendering lives entirely in the client; this
// server only moves state through the core services.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/digkill/aieditor/internal/blend"
	"github.com/digkill/aieditor/internal/models"
	"github.com/digkill/aieditor/internal/service"
	"github.com/digkill/aieditor/internal/session"
)

type Server struct {
	addr      string
	log       *slog.Logger
	users     *service.UserService
	templates *service.TemplateService
	history   *service.HistoryService
	payments  *service.PaymentService
	credits   *service.CreditService
	edits     *service.EditService
	suggests  *service.SuggestService
	session   *session.Manager
	router    *chi.Mux

	mu          sync.Mutex
	suggestions []string
}

func NewServer(addr string, log *slog.Logger, users *service.UserService, templates *service.TemplateService, history *service.HistoryService, payments *service.PaymentService, credits *service.CreditService, edits *service.EditService, suggests *service.SuggestService, sess *session.Manager) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	s := &Server{
		addr:      addr,
		log:       log,
		users:     users,
		templates: templates,
		history:   history,
		payments:  payments,
		credits:   credits,
		edits:     edits,
		suggests:  suggests,
		session:   sess,
		router:    r,
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)
		r.Get("/me", s.handleMe)
	})
	r.Route("/images", func(r chi.Router) {
		r.Get("/", s.handleListImages)
		r.Post("/", s.handleSelectImages)
		r.Delete("/", s.handleClearAllImages)
		r.Delete("/{id}", s.handleClearImage)
		r.Put("/active/{id}", s.handleSetActive)
	})
	r.Post("/edit", s.handleEdit)
	r.Post("/merge", s.handleMerge)
	r.Put("/view", s.handleSetView)
	r.Route("/templates", func(r chi.Router) {
		r.Get("/", s.handleListCategories)
		r.Post("/", s.handleAddTemplate)
	})
	r.Route("/history", func(r chi.Router) {
		r.Get("/", s.handleListHistory)
		r.Post("/{id}/restore", s.handleRestoreHistory)
		r.Delete("/{id}", s.handleRemoveHistory)
	})
	r.Route("/suggestions", func(r chi.Router) {
		r.Post("/", s.handleRequestSuggestions)
		r.Get("/", s.handleGetSuggestions)
	})
	r.Route("/payments", func(r chi.Router) {
		r.Get("/config", s.handlePaymentConfig)
		r.Post("/orders", s.handleCreateOrder)
		r.Get("/orders/{id}", s.handleOrderStatus)
		r.Post("/orders/{id}/simulate-success", s.handleSimulateSuccess)
	})

	return s
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("api shutdown error", "err", err)
		}
	}()

	s.log.Info("api listening", "addr", s.addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api listen: %w", err)
	}
	return nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
	Credits  int    `json:"credits"`
}

func toUserResponse(u models.User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, IsAdmin: u.IsAdmin, Credits: u.Credits}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	user, err := s.users.Register(req.Username, req.Password)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toUserResponse(*user))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	user, err := s.users.Login(req.Username, req.Password)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toUserResponse(*user))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.users.Logout(); err != nil {
		s.log.Warn("logout", "err", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user := s.users.CurrentUser()
	if user == nil {
		http.Error(w, "not logged in", http.StatusUnauthorized)
		return
	}
	s.writeJSON(w, http.StatusOK, toUserResponse(*user))
}

type uploadRequest struct {
	Images []struct {
		Data     string `json:"data"`
		MimeType string `json:"mime_type"`
		FileName string `json:"file_name"`
	} `json:"images"`
}

func (s *Server) handleSelectImages(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if len(req.Images) == 0 {
		http.Error(w, "no images supplied", http.StatusBadRequest)
		return
	}

	uploads := make([]models.UploadedImage, 0, len(req.Images))
	for _, img := range req.Images {
		if img.Data == "" {
			http.Error(w, "image data is required", http.StatusBadRequest)
			return
		}
		// Reject undecodable uploads up front instead of at edit time.
		if _, err := blend.Decode(img.Data, img.MimeType); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		uploads = append(uploads, models.UploadedImage{
			ID:       uuid.NewString(),
			Data:     img.Data,
			MimeType: img.MimeType,
			FileName: img.FileName,
		})
	}
	s.session.SelectImages(uploads)
	s.writeJSON(w, http.StatusCreated, s.imageSummaries())
}

func (s *Server) handleListImages(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.imageSummaries())
}

type imageSummary struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	FileName string `json:"file_name"`
	Active   bool   `json:"active"`
}

func (s *Server) imageSummaries() []imageSummary {
	active, _ := s.session.Active()
	images := s.session.Images()
	out := make([]imageSummary, 0, len(images))
	for _, img := range images {
		out = append(out, imageSummary{
			ID:       img.ID,
			MimeType: img.MimeType,
			FileName: img.FileName,
			Active:   img.ID == active.ID,
		})
	}
	return out
}

func (s *Server) handleClearAllImages(w http.ResponseWriter, r *http.Request) {
	s.session.ClearImage("")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearImage(w http.ResponseWriter, r *http.Request) {
	s.session.ClearImage(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetActive(w http.ResponseWriter, r *http.Request) {
	if err := s.session.SetActive(chi.URLParam(r, "id")); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type editRequest struct {
	Prompt     string `json:"prompt"`
	TemplateID string `json:"template_id"`
}

type resultResponse struct {
	Data     string `json:"data"`
	MimeType string `json:"mime_type"`
	Prompt   string `json:"prompt"`
	Credits  int    `json:"credits"`
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	user := s.users.CurrentUser()
	if user == nil {
		http.Error(w, "not logged in", http.StatusUnauthorized)
		return
	}
	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	result, err := s.edits.Edit(r.Context(), user, service.EditRequest{
		Prompt:     req.Prompt,
		TemplateID: req.TemplateID,
	})
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeResult(w, user.ID, result)
}

type mergeRequest struct {
	OverlayData string  `json:"overlay_data"`
	OverlayMime string  `json:"overlay_mime"`
	Mode        string  `json:"mode"`
	Opacity     float64 `json:"opacity"`
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	user := s.users.CurrentUser()
	if user == nil {
		http.Error(w, "not logged in", http.StatusUnauthorized)
		return
	}
	var req mergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	result, err := s.edits.Merge(r.Context(), user, service.MergeRequest{
		Overlay: models.UploadedImage{
			ID:       uuid.NewString(),
			Data:     req.OverlayData,
			MimeType: req.OverlayMime,
		},
		Mode:    models.BlendMode(req.Mode),
		Opacity: req.Opacity,
	})
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeResult(w, user.ID, result)
}

func (s *Server) writeResult(w http.ResponseWriter, userID string, result *session.Result) {
	balance, err := s.credits.Balance(userID)
	if err != nil {
		balance = 0
	}
	s.writeJSON(w, http.StatusOK, resultResponse{
		Data:     result.Data,
		MimeType: result.MimeType,
		Prompt:   result.Prompt,
		Credits:  balance,
	})
}

type viewRequest struct {
	Mode string `json:"mode"`
}

func (s *Server) handleSetView(w http.ResponseWriter, r *http.Request) {
	var req viewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	mode := s.session.SetViewMode(session.ViewMode(req.Mode))
	s.writeJSON(w, http.StatusOK, map[string]string{"mode": string(mode)})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.templates.Categories())
}

type addTemplateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Prompt      string `json:"prompt"`
	CategoryID  string `json:"category_id"`
}

func (s *Server) handleAddTemplate(w http.ResponseWriter, r *http.Request) {
	var req addTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	tpl, err := s.templates.AddUserTemplate(req.Name, req.Description, req.Prompt, req.CategoryID)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, tpl)
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.history.List())
}

func (s *Server) handleRestoreHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.edits.Restore(chi.URLParam(r, "id")); err != nil {
		s.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.history.Remove(chi.URLParam(r, "id")); err != nil {
		s.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type suggestRequest struct {
	Prompt  string `json:"prompt"`
	Context string `json:"context"`
}

// handleRequestSuggestions schedules a debounced fetch; the client polls
// GET /suggestions for whatever the newest request produced.
func (s *Server) handleRequestSuggestions(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	s.suggests.Fetch(context.WithoutCancel(r.Context()), req.Prompt, req.Context, func(suggestions []string) {
		s.mu.Lock()
		s.suggestions = suggestions
		s.mu.Unlock()
	})
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleGetSuggestions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := append([]string(nil), s.suggestions...)
	s.mu.Unlock()
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePaymentConfig(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.payments.Config())
}

type createOrderRequest struct {
	Credits int `json:"credits"`
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	user := s.users.CurrentUser()
	if user == nil {
		http.Error(w, "not logged in", http.StatusUnauthorized)
		return
	}
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	order, err := s.payments.CreateOrder(user.ID, req.Credits)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, order)
}

func (s *Server) handleOrderStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.payments.OrderStatus(chi.URLParam(r, "id"))
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": string(status)})
}

func (s *Server) handleSimulateSuccess(w http.ResponseWriter, r *http.Request) {
	order, err := s.payments.SimulateSuccess(chi.URLParam(r, "id"))
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, order)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, service.ErrInsufficientCredits):
		http.Error(w, err.Error(), http.StatusPaymentRequired)
	case errors.Is(err, service.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, blend.ErrDecode):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrNoImageReturned):
		http.Error(w, "no edited image was returned, try a different prompt", http.StatusUnprocessableEntity)
	case errors.Is(err, session.ErrEditInFlight):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		s.log.Error("api handler error", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
