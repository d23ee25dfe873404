package appointments

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrDuking/talktodoc-backend-sub000/internal/accounts"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/httpx"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/middleware"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/schedule"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/transport"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/validation"
)

type Handler struct {
	service *Service
	val     *validation.Validator
	log     *slog.Logger
}

func NewHandler(service *Service, val *validation.Validator, log *slog.Logger) *Handler {
	return &Handler{
		service: service,
		val:     val,
		log:     log,
	}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	actor, _ := middleware.ActorFromContext(r.Context())

	var req CreateRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	appt, err := h.service.Create(ctx, actor.ID, req)
	if err != nil {
		log.Error("appointments create: error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("appointments create: ok", slog.String("appointment_id", appt.ID))
	transport.WriteJSON(w, http.StatusCreated, appt)
}

func (h *Handler) SubmitAnswers(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	actor, _ := middleware.ActorFromContext(r.Context())
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	var req AnswersRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	appt, err := h.service.SubmitAnswers(ctx, actor.ID, id, req)
	if err != nil {
		h.writeTransitionError(w, log, "appointments answers", err)
		return
	}

	log.Info("appointments answers: ok", slog.String("appointment_id", appt.ID))
	transport.WriteJSON(w, http.StatusOK, appt)
}

func (h *Handler) SelectDoctor(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	actor, _ := middleware.ActorFromContext(r.Context())
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	var req SelectDoctorRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	appt, err := h.service.SelectDoctor(ctx, actor.ID, id, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidTimeRange),
			errors.Is(err, ErrDatePast),
			errors.Is(err, schedule.ErrInvalidDate),
			errors.Is(err, schedule.ErrInvalidTime):
			transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		case errors.Is(err, ErrDoctorNotFound):
			transport.WriteError(w, http.StatusNotFound, "doctor not found", nil)
		case errors.Is(err, ErrSpecialtyMismatch):
			transport.WriteError(w, http.StatusUnprocessableEntity, "doctor does not cover this specialty", nil)
		default:
			h.writeTransitionError(w, log, "appointments select doctor", err)
		}
		return
	}

	log.Info("appointments select doctor: ok",
		slog.String("appointment_id", appt.ID),
		slog.String("doctor_id", appt.DoctorID),
	)
	transport.WriteJSON(w, http.StatusOK, appt)
}

// Decision handles both confirm and reject; the verb comes from the route.
func (h *Handler) Decision(confirm bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := h.logWithRequest(r)
		actor, _ := middleware.ActorFromContext(r.Context())
		id := strings.TrimSpace(chi.URLParam(r, "id"))

		var req DecisionRequest
		if err := httpx.DecodeJSON(r.Body, &req); err != nil {
			transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		appt, err := h.service.Decide(ctx, actor.ID, id, confirm, req.Note)
		if err != nil {
			h.writeTransitionError(w, log, "appointments decision", err)
			return
		}

		log.Info("appointments decision: ok",
			slog.String("appointment_id", appt.ID),
			slog.String("status", appt.Status),
		)
		transport.WriteJSON(w, http.StatusOK, appt)
	}
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	actor, _ := middleware.ActorFromContext(r.Context())
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	appt, err := h.service.Cancel(ctx, actor.ID, id)
	if err != nil {
		h.writeTransitionError(w, log, "appointments cancel", err)
		return
	}

	log.Info("appointments cancel: ok", slog.String("appointment_id", appt.ID))
	transport.WriteJSON(w, http.StatusOK, appt)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	actor, _ := middleware.ActorFromContext(r.Context())
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	appt, err := h.service.GetForActor(ctx, actor.ID, actor.Role, id)
	if err != nil {
		h.writeTransitionError(w, log, "appointments get", err)
		return
	}

	transport.WriteJSON(w, http.StatusOK, appt)
}

// List scopes the result set to the caller: patients see their own bookings,
// doctors their assigned ones, staff everything.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	actor, _ := middleware.ActorFromContext(r.Context())

	page, err := httpx.ParsePageQuery(r.URL.Query(), 20, 100)
	if err != nil {
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	filter := ListFilter{Status: strings.TrimSpace(r.URL.Query().Get("status"))}
	switch actor.Role {
	case accounts.RolePatient:
		filter.PatientID = actor.ID
	case accounts.RoleDoctor:
		filter.DoctorID = actor.ID
	default:
		filter.PatientID = strings.TrimSpace(r.URL.Query().Get("patientId"))
		filter.DoctorID = strings.TrimSpace(r.URL.Query().Get("doctorId"))
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	items, total, err := h.service.List(ctx, filter, page.Limit, page.Offset())
	if err != nil {
		log.Error("appointments list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	transport.WritePage(w, items, page.Page, page.Limit, total)
}

func (h *Handler) writeTransitionError(w http.ResponseWriter, log *slog.Logger, op string, err error) {
	switch {
	case errors.Is(err, ErrInvalidID):
		transport.WriteError(w, http.StatusBadRequest, "invalid id", nil)
	case errors.Is(err, ErrNotFoundOrDenied):
		transport.WriteError(w, http.StatusNotFound, "appointment not found or access denied", nil)
	case errors.Is(err, ErrInvalidState):
		transport.WriteError(w, http.StatusConflict, "invalid appointment state for this operation", nil)
	default:
		log.Error(op+": error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
	}
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
