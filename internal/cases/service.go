package cases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/MrDuking/talktodoc-backend-sub000/internal/accounts"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/catalog"
)

var (
	ErrInvalidID        = errors.New("invalid case id")
	ErrNotFoundOrDenied = errors.New("case not found or access denied")
	ErrStatusBackwards  = errors.New("case status can only advance")
	ErrUnknownMedicine  = errors.New("unknown medicine")
)

// MedicineCatalog resolves medicine ids for prescription snapshots.
type MedicineCatalog interface {
	GetMany(ctx context.Context, ids []string) (map[string]catalog.Medicine, error)
}

type Service struct {
	repo      Repository
	medicines MedicineCatalog
	log       *slog.Logger
}

func NewService(repo Repository, medicines MedicineCatalog, log *slog.Logger) *Service {
	return &Service{repo: repo, medicines: medicines, log: log}
}

func (s *Service) Create(ctx context.Context, patientID string, req CreateRequest) (Case, error) {
	now := time.Now()
	c := Case{
		ID:            primitive.NewObjectID().Hex(),
		PatientID:     patientID,
		SpecialtyID:   req.SpecialtyID,
		AppointmentID: req.AppointmentID,
		MedicalForm:   req.MedicalForm,
		Status:        StatusDraft,
		Offers:        []Offer{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return Case{}, err
	}
	return c, nil
}

// fetch loads the case and enforces visibility: patients see their own,
// doctors the ones assigned to them, staff everything. Absent and foreign
// collapse into the same error.
func (s *Service) fetch(ctx context.Context, actorID, actorRole, id string) (Case, error) {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return Case{}, ErrInvalidID
	}
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Case{}, ErrNotFoundOrDenied
		}
		return Case{}, err
	}
	switch {
	case actorRole == accounts.RoleAdmin, actorRole == accounts.RoleEmployee:
	case c.PatientID == actorID:
	case c.DoctorID == actorID:
	default:
		return Case{}, ErrNotFoundOrDenied
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, actorID, actorRole, id string) (Case, error) {
	return s.fetch(ctx, actorID, actorRole, id)
}

func (s *Service) UpdateForm(ctx context.Context, actorID, actorRole, id string, req UpdateFormRequest) (Case, error) {
	if _, err := s.fetch(ctx, actorID, actorRole, id); err != nil {
		return Case{}, err
	}
	updated, err := s.repo.UpdateIf(ctx,
		bson.M{"_id": id},
		bson.M{"medicalForm": req.MedicalForm, "updatedAt": time.Now()},
	)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Case{}, ErrNotFoundOrDenied
		}
		return Case{}, err
	}
	return updated, nil
}

// AdvanceStatus moves the case forward along the lifecycle. Backward moves
// and unknown states are rejected; the current status sits in the update
// filter so two racing writers cannot both advance from the same state.
func (s *Service) AdvanceStatus(ctx context.Context, actorID, actorRole, id, next string) (Case, error) {
	c, err := s.fetch(ctx, actorID, actorRole, id)
	if err != nil {
		return Case{}, err
	}

	nextRank, ok := statusRank[next]
	if !ok || nextRank <= statusRank[c.Status] {
		return Case{}, ErrStatusBackwards
	}

	updated, err := s.repo.UpdateIf(ctx,
		bson.M{"_id": id, "status": c.Status},
		bson.M{"status": next, "updatedAt": time.Now()},
	)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Case{}, ErrStatusBackwards
		}
		return Case{}, err
	}
	return updated, nil
}

// Assign puts a doctor on the case and advances it to ASSIGNED.
func (s *Service) Assign(ctx context.Context, actorID, actorRole, id, doctorID string) (Case, error) {
	c, err := s.fetch(ctx, actorID, actorRole, id)
	if err != nil {
		return Case{}, err
	}
	if statusRank[c.Status] >= statusRank[StatusAssigned] {
		return Case{}, ErrStatusBackwards
	}

	updated, err := s.repo.UpdateIf(ctx,
		bson.M{"_id": id, "status": c.Status},
		bson.M{"doctorId": doctorID, "status": StatusAssigned, "updatedAt": time.Now()},
	)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Case{}, ErrStatusBackwards
		}
		return Case{}, err
	}
	return updated, nil
}

// AddOffer appends a prescription offer. Every referenced medicine must
// resolve against the catalog before anything is written; one miss aborts
// the whole offer and the error names the offending id. The snapshot is
// taken from the resolved documents, then appended with a single push.
func (s *Service) AddOffer(ctx context.Context, actorID, actorRole, id string, req AddOfferRequest) (Case, error) {
	c, err := s.fetch(ctx, actorID, actorRole, id)
	if err != nil {
		return Case{}, err
	}
	if c.Status == StatusCompleted {
		return Case{}, ErrStatusBackwards
	}

	ids := make([]string, 0, len(req.Medications))
	seen := make(map[string]bool, len(req.Medications))
	for _, item := range req.Medications {
		if !seen[item.MedicineID] {
			seen[item.MedicineID] = true
			ids = append(ids, item.MedicineID)
		}
	}

	resolved, err := s.medicines.GetMany(ctx, ids)
	if err != nil {
		return Case{}, err
	}
	for _, medID := range ids {
		if _, ok := resolved[medID]; !ok {
			return Case{}, fmt.Errorf("%w: %s", ErrUnknownMedicine, medID)
		}
	}

	items := make([]MedicationItem, 0, len(req.Medications))
	for _, item := range req.Medications {
		med := resolved[item.MedicineID]
		items = append(items, MedicationItem{
			MedicineID:    med.ID,
			Name:          med.Name,
			Unit:          med.Unit,
			Concentration: med.Concentration,
			Dosage:        item.Dosage,
			Usage:         item.Usage,
			Duration:      item.Duration,
		})
	}

	offer := Offer{
		ID:          primitive.NewObjectID().Hex(),
		CreatedBy:   actorID,
		Note:        req.Note,
		Medications: items,
		CreatedAt:   time.Now(),
	}

	updated, err := s.repo.PushOffer(ctx, c.ID, offer)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Case{}, ErrNotFoundOrDenied
		}
		return Case{}, err
	}

	s.log.Info("case offer added",
		slog.String("case_id", c.ID),
		slog.String("offer_id", offer.ID),
		slog.Int("medications", len(items)),
	)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, actorID, actorRole, id string) error {
	if _, err := s.fetch(ctx, actorID, actorRole, id); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFoundOrDenied
		}
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, filter ListFilter, limit, offset int64) ([]Case, int64, error) {
	items, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
