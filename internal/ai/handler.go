package ai

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/MrDuking/talktodoc-backend-sub000/internal/catalog"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/httpx"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/middleware"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/transport"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/validation"
)

// Suggester is implemented by Triage; tests stub it.
type Suggester interface {
	Suggest(ctx context.Context, symptoms string, options []SpecialtyOption) (Suggestion, error)
}

// SpecialtySource lists the catalog entries the model may pick from.
type SpecialtySource interface {
	List(ctx context.Context, filter bson.M, sort bson.D, limit, offset int64) ([]catalog.Specialty, error)
}

type TriageRequest struct {
	Symptoms string `json:"symptoms" validate:"required,min=3,max=2000"`
}

type Handler struct {
	triage      Suggester
	specialties SpecialtySource
	val         *validation.Validator
	log         *slog.Logger
}

func NewHandler(triage Suggester, specialties SpecialtySource, val *validation.Validator, log *slog.Logger) *Handler {
	return &Handler{
		triage:      triage,
		specialties: specialties,
		val:         val,
		log:         log,
	}
}

func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	if h.triage == nil {
		transport.WriteError(w, http.StatusServiceUnavailable, "triage unavailable", nil)
		return
	}

	var req TriageRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	list, err := h.specialties.List(ctx, bson.M{}, nil, 200, 0)
	if err != nil {
		log.Error("triage: specialty list failed", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	options := make([]SpecialtyOption, 0, len(list))
	for _, s := range list {
		options = append(options, SpecialtyOption{ID: s.ID, Name: s.Name})
	}

	suggestion, err := h.triage.Suggest(ctx, req.Symptoms, options)
	if err != nil {
		if errors.Is(err, ErrNoSuggestion) {
			transport.WriteError(w, http.StatusUnprocessableEntity, "no suitable specialty found", nil)
			return
		}
		log.Error("triage: suggestion failed", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusBadGateway, "triage provider error", nil)
		return
	}

	log.Info("triage: ok", slog.String("specialty_id", suggestion.SpecialtyID))
	transport.WriteJSON(w, http.StatusOK, suggestion)
}

func (h *Handler) logWithRequest(r *http.Request) *slog.Logger {
	if r == nil {
		return h.log
	}
	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		return h.log.With(slog.String("request_id", id))
	}
	return h.log
}
