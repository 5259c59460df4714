package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"colegiobot/internal/database"
	apperrors "colegiobot/internal/errors"
	"colegiobot/internal/middleware"
	"colegiobot/internal/models"
	"colegiobot/internal/panel"
	"colegiobot/internal/service"
	"colegiobot/pkg/openrouter"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type Server struct {
	router       *mux.Router
	logger       *logrus.Logger
	conversation *service.ConversationService
	renderer     *panel.Renderer
	db           *database.Database
	llmClient    openrouter.Client
	cfg          *models.Config
	location     *time.Location
	server       *http.Server
}

func NewServer(
	cfg *models.Config,
	conversation *service.ConversationService,
	renderer *panel.Renderer,
	db *database.Database,
	llmClient openrouter.Client,
	location *time.Location,
	logger *logrus.Logger,
) *Server {
	s := &Server{
		router:       mux.NewRouter(),
		logger:       logger,
		conversation: conversation,
		renderer:     renderer,
		db:           db,
		llmClient:    llmClient,
		cfg:          cfg,
		location:     location,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Observability(s.logger))

	s.router.HandleFunc("/", s.handleRoot()).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)

	webhook := s.router.PathPrefix("/webhook/whatsapp").Subrouter()
	webhook.Use(middleware.WebhookObservability(s.logger))
	webhook.HandleFunc("", s.handleWhatsAppWebhook()).Methods(http.MethodPost)

	s.router.HandleFunc("/contacts", s.handleListContacts()).Methods(http.MethodGet)
	s.router.HandleFunc("/conversations/{phone}", s.handleGetConversation()).Methods(http.MethodGet)

	s.router.HandleFunc("/panel", s.handlePanelContacts()).Methods(http.MethodGet)
	s.router.HandleFunc("/panel/conversations/json/{phone}", s.handleGetConversation()).Methods(http.MethodGet)
	s.router.HandleFunc("/panel/conversations/{phone}", s.handlePanelConversation()).Methods(http.MethodGet)

	s.router.HandleFunc("/debug/time", s.handleDebugTime()).Methods(http.MethodGet)
	s.router.HandleFunc("/test-gemini", s.handleLLMProbe()).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics()).Methods(http.MethodGet)
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.Server.IdleTimeoutSec) * time.Second,
	}

	s.logger.Infof("Starting server on port %d", s.cfg.Server.Port)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

// writeError maps application error codes onto HTTP statuses. The raw
// cause stays in the logs; clients get the user-facing message.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeNotFound:
		status = http.StatusNotFound
	case apperrors.ErrCodeInvalidInput, apperrors.ErrCodeValidationFailed:
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		s.logger.WithError(err).Error("Request failed")
	}

	s.writeJSON(w, status, map[string]string{
		"error": apperrors.GetUserMessage(err),
		"code":  string(apperrors.GetCode(err)),
	})
}

func (s *Server) handleRoot() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{
			"service": "colegiobot",
			"school":  s.cfg.School.Name,
			"version": Version,
		})
	}
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbStatus := "ok"
		status := http.StatusOK
		if err := s.db.Health(r.Context()); err != nil {
			dbStatus = "error"
			status = http.StatusServiceUnavailable
			s.logger.WithError(err).Error("Database health check failed")
		}

		s.writeJSON(w, status, map[string]interface{}{
			"status":            dbStatus,
			"database":          dbStatus,
			"twilio_configured": s.cfg.Twilio.Configured(),
			"llm_configured":    s.cfg.LLM.Configured(),
		})
	}
}

// handleWhatsAppWebhook accepts a form-encoded gateway delivery. The
// gateway retries on 5xx, so processing failures are reported inside a
// 200 envelope instead.
func (s *Server) handleWhatsAppWebhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			s.writeJSON(w, http.StatusOK, models.WebhookResponse{
				Status: "error",
				Detail: "malformed form payload",
			})
			return
		}

		inbound := models.InboundMessage{
			From: r.PostFormValue("From"),
			Body: r.PostFormValue("Body"),
			To:   r.PostFormValue("To"),
		}

		resp, err := s.conversation.HandleInbound(r.Context(), inbound)
		if err != nil {
			s.logger.WithError(err).Warn("Webhook processing failed")
			s.writeJSON(w, http.StatusOK, models.WebhookResponse{
				Status: "error",
				Detail: apperrors.GetUserMessage(err),
			})
			return
		}

		s.writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) handleListContacts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		page := parseIntParam(query.Get("page"), 1)
		limit := parseIntParam(query.Get("limit"), 0)
		status := models.ContactStatus(query.Get("status"))

		result, err := s.conversation.ListContacts(r.Context(), status, page, limit)
		if err != nil {
			s.writeError(w, err)
			return
		}

		s.writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) handleGetConversation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		phone := mux.Vars(r)["phone"]
		limit := parseIntParam(r.URL.Query().Get("limit"), 0)

		conv, err := s.conversation.GetConversation(r.Context(), phone, limit)
		if err != nil {
			s.writeError(w, err)
			return
		}

		s.writeJSON(w, http.StatusOK, conv)
	}
}

func (s *Server) handlePanelContacts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		page := parseIntParam(query.Get("page"), 1)
		limit := parseIntParam(query.Get("limit"), 0)

		result, err := s.conversation.ListContacts(r.Context(), "", page, limit)
		if err != nil {
			s.writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := s.renderer.RenderContacts(w, result); err != nil {
			s.logger.WithError(err).Error("Failed to render contact panel")
		}
	}
}

func (s *Server) handlePanelConversation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		phone := mux.Vars(r)["phone"]

		conv, err := s.conversation.GetConversation(r.Context(), phone, 0)
		if err != nil {
			s.writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := s.renderer.RenderConversation(w, conv); err != nil {
			s.logger.WithError(err).Error("Failed to render conversation view")
		}
	}
}

func (s *Server) handleDebugTime() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()
		s.writeJSON(w, http.StatusOK, map[string]string{
			"utc":      now.UTC().Format(time.RFC3339),
			"local":    now.In(s.location).Format(time.RFC3339),
			"timezone": s.location.String(),
		})
	}
}

// handleLLMProbe performs one tiny completion against the configured
// model so operators can verify connectivity and credentials.
func (s *Server) handleLLMProbe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.llmClient == nil {
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "disabled",
				"detail": "OPENROUTER_API_KEY is not set",
			})
			return
		}

		reply, err := s.llmClient.Probe(r.Context())
		if err != nil {
			s.logger.WithError(err).Warn("LLM probe failed")
			s.writeJSON(w, http.StatusBadGateway, map[string]string{
				"status": "error",
				"detail": err.Error(),
			})
			return
		}

		s.writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
			"model":  s.cfg.LLM.Model,
			"reply":  reply,
		})
	}
}

func parseIntParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
