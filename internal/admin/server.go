// Package admin is the HTTP management panel: user pool, credit balances,
// pricing config and user-template cleanup. It replaces the browser-local
// admin screen with a small authenticated JSON API.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/digkill/aieditor/internal/models"
	"github.com/digkill/aieditor/internal/service"
)

type Server struct {
	addr      string
	username  string
	password  string
	log       *slog.Logger
	users     *service.UserService
	credits   *service.CreditService
	payments  *service.PaymentService
	templates *service.TemplateService
	history   *service.HistoryService
	router    *chi.Mux
}

func NewServer(addr, username, password string, log *slog.Logger, users *service.UserService, credits *service.CreditService, payments *service.PaymentService, templates *service.TemplateService, history *service.HistoryService) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	s := &Server{
		addr:      addr,
		username:  username,
		password:  password,
		log:       log,
		users:     users,
		credits:   credits,
		payments:  payments,
		templates: templates,
		history:   history,
		router:    r,
	}
	r.Group(func(protected chi.Router) {
		protected.Use(s.basicAuthMiddleware())
		protected.Route("/users", func(r chi.Router) {
			r.Get("/", s.handleListUsers)
			r.Put("/{id}", s.handleUpdateUser)
			r.Delete("/{id}", s.handleDeleteUser)
			r.Put("/{id}/credits", s.handleSetCredits)
		})
		protected.Route("/payment-config", func(r chi.Router) {
			r.Get("/", s.handleGetPaymentConfig)
			r.Put("/", s.handleUpdatePaymentConfig)
		})
		protected.Delete("/templates/{id}", s.handleDeleteTemplate)
		protected.Route("/history", func(r chi.Router) {
			r.Get("/", s.handleListHistory)
			r.Delete("/{id}", s.handleDeleteHistory)
			r.Post("/{id}/share", s.handleShareHistory)
		})
	})
	return s
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("admin shutdown error", "err", err)
		}
	}()

	s.log.Info("admin panel listening", "addr", s.addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("admin listen: %w", err)
	}
	return nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	IsAdmin   bool      `json:"is_admin"`
	Credits   int       `json:"credits"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toUserResponse(u models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		IsAdmin:   u.IsAdmin,
		Credits:   u.Credits,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users := s.users.All()
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	s.writeJSON(w, http.StatusOK, out)
}

type userUpdateRequest struct {
	Username *string `json:"username"`
	IsAdmin  *bool   `json:"is_admin"`
	Credits  *int    `json:"credits"`
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req userUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	existing, err := s.users.Get(id)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	if req.Username != nil && strings.TrimSpace(*req.Username) != "" {
		existing.Username = strings.TrimSpace(*req.Username)
	}
	if req.IsAdmin != nil {
		existing.IsAdmin = *req.IsAdmin
	}
	if req.Credits != nil {
		existing.Credits = *req.Credits
	}

	updated, err := s.users.AdminUpdate(*existing)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toUserResponse(*updated))
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.users.Delete(chi.URLParam(r, "id")); err != nil {
		s.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setCreditsRequest struct {
	Credits int `json:"credits"`
}

func (s *Server) handleSetCredits(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req setCreditsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := s.credits.SetCredits(id, req.Credits); err != nil {
		s.serviceError(w, err)
		return
	}
	user, err := s.users.Get(id)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toUserResponse(*user))
}

func (s *Server) handleGetPaymentConfig(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.payments.Config())
}

func (s *Server) handleUpdatePaymentConfig(w http.ResponseWriter, r *http.Request) {
	var cfg models.PaymentConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := s.payments.UpdateConfig(cfg); err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.payments.Config())
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.templates.DeleteUserTemplate(chi.URLParam(r, "id")); err != nil {
		s.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	type historySummary struct {
		ID           string `json:"id"`
		Prompt       string `json:"prompt"`
		Timestamp    int64  `json:"timestamp"`
		TemplateName string `json:"template_name,omitempty"`
		CategoryName string `json:"category_name,omitempty"`
	}
	entries := s.history.List()
	out := make([]historySummary, 0, len(entries))
	for _, e := range entries {
		out = append(out, historySummary{
			ID:           e.ID,
			Prompt:       e.Prompt,
			Timestamp:    e.Timestamp,
			TemplateName: e.TemplateName,
			CategoryName: e.CategoryName,
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.history.Remove(chi.URLParam(r, "id")); err != nil {
		s.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleShareHistory(w http.ResponseWriter, r *http.Request) {
	url, err := s.history.Share(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (s *Server) basicAuthMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok || user != s.username || pass != s.password {
				w.Header().Set("WWW-Authenticate", `Basic realm="aieditor"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		s.log.Error("admin handler error", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
