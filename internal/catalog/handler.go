package catalog

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/MrDuking/talktodoc-backend-sub000/internal/httpx"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/middleware"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/transport"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/validation"
)

var ErrNotFound = errors.New("resource not found")

// Handler serves one catalog resource. The build/set hooks map the request
// type onto a new document and an update set; everything else (decode,
// validation, id checks, error mapping) is shared.
type Handler[T Entity, Req any] struct {
	name  string
	repo  *Repository[T]
	val   *validation.Validator
	log   *slog.Logger
	build func(req Req, id string, now time.Time) T
	set   func(req Req, now time.Time) bson.M
}

func NewHandler[T Entity, Req any](
	name string,
	repo *Repository[T],
	val *validation.Validator,
	log *slog.Logger,
	build func(req Req, id string, now time.Time) T,
	set func(req Req, now time.Time) bson.M,
) *Handler[T, Req] {
	return &Handler[T, Req]{
		name:  name,
		repo:  repo,
		val:   val,
		log:   log,
		build: build,
		set:   set,
	}
}

// Mount registers the CRUD routes on rt. Reads are open to any
// authenticated caller; writes require the given roles.
func (h *Handler[T, Req]) Mount(rt chi.Router, writeRoles ...string) {
	rt.Get("/", h.List)
	rt.Get("/{id}", h.Get)
	rt.Group(func(protected chi.Router) {
		protected.Use(middleware.RequireRoles(writeRoles...))
		protected.Post("/", h.Create)
		protected.Put("/{id}", h.Update)
		protected.Delete("/{id}", h.Delete)
	})
}

func (h *Handler[T, Req]) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req Req
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn(h.name + " create: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn(h.name + " create: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	doc := h.build(req, primitive.NewObjectID().Hex(), time.Now())
	if err := h.repo.Create(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			log.Warn(h.name + " create: duplicate")
			transport.WriteError(w, http.StatusConflict, h.name+" already exists", nil)
			return
		}
		log.Error(h.name+" create: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info(h.name+" create: ok", slog.String("id", doc.GetID()))
	transport.WriteJSON(w, http.StatusCreated, doc)
}

func (h *Handler[T, Req]) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid id", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	doc, err := h.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			transport.WriteError(w, http.StatusNotFound, h.name+" not found", nil)
			return
		}
		log.Error(h.name+" get: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	transport.WriteJSON(w, http.StatusOK, doc)
}

func (h *Handler[T, Req]) Update(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid id", nil)
		return
	}

	var req Req
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

	doc, err := h.repo.Update(ctx, id, h.set(req, time.Now()))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			transport.WriteError(w, http.StatusNotFound, h.name+" not found", nil)
			return
		}
		if mongo.IsDuplicateKeyError(err) {
			transport.WriteError(w, http.StatusConflict, h.name+" already exists", nil)
			return
		}
		log.Error(h.name+" update: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info(h.name+" update: ok", slog.String("id", id))
	transport.WriteJSON(w, http.StatusOK, doc)
}

func (h *Handler[T, Req]) Delete(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid id", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	deleted, err := h.repo.Delete(ctx, id)
	if err != nil {
		log.Error(h.name+" delete: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	if !deleted {
		transport.WriteError(w, http.StatusNotFound, h.name+" not found", nil)
		return
	}

	log.Info(h.name+" delete: ok", slog.String("id", id))
	transport.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler[T, Req]) List(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	page, err := httpx.ParsePageQuery(r.URL.Query(), 20, 100, "name", "createdAt")
	if err != nil {
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	filter := bson.M{}
	if name := strings.TrimSpace(r.URL.Query().Get("name")); name != "" {
		filter["name"] = bson.M{"$regex": primitive.Regex{Pattern: name, Options: "i"}}
	}

	sort := bson.D{}
	if page.Sort != "" {
		dir := 1
		if page.Desc {
			dir = -1
		}
		sort = bson.D{{Key: page.Sort, Value: dir}}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	items, err := h.repo.List(ctx, filter, sort, page.Limit, page.Offset())
	if err != nil {
		log.Error(h.name+" list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	total, err := h.repo.Count(ctx, filter)
	if err != nil {
		log.Error(h.name+" list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info(h.name+" list: ok", slog.Int("count", len(items)))
	transport.WritePage(w, items, page.Page, page.Limit, total)
}

func (h *Handler[T, Req]) logWithRequest(r *http.Request) *slog.Logger {
	if r == nil {
		return h.log
	}
	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		return h.log.With(slog.String("request_id", id))
	}
	return h.log
}
