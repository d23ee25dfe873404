package cases

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/MrDuking/talktodoc-backend-sub000/internal/accounts"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/catalog"
)

type stubRepo struct {
	byID        map[string]Case
	pushCalls   int
	pushedOffer Offer
	updateCalls int
	lastSet     bson.M
}

func (s *stubRepo) Create(ctx context.Context, c Case) error {
	if s.byID == nil {
		s.byID = make(map[string]Case)
	}
	s.byID[c.ID] = c
	return nil
}

func (s *stubRepo) GetByID(ctx context.Context, id string) (Case, error) {
	c, ok := s.byID[id]
	if !ok || c.Deleted {
		return Case{}, mongo.ErrNoDocuments
	}
	return c, nil
}

func (s *stubRepo) UpdateIf(ctx context.Context, filter, set bson.M) (Case, error) {
	s.updateCalls++
	s.lastSet = set
	id, _ := filter["_id"].(string)
	c, ok := s.byID[id]
	if !ok || c.Deleted {
		return Case{}, mongo.ErrNoDocuments
	}
	if status, present := filter["status"]; present && c.Status != status {
		return Case{}, mongo.ErrNoDocuments
	}
	if next, ok := set["status"].(string); ok {
		c.Status = next
	}
	if doctorID, ok := set["doctorId"].(string); ok {
		c.DoctorID = doctorID
	}
	s.byID[id] = c
	return c, nil
}

func (s *stubRepo) PushOffer(ctx context.Context, id string, offer Offer) (Case, error) {
	s.pushCalls++
	s.pushedOffer = offer
	c, ok := s.byID[id]
	if !ok || c.Deleted {
		return Case{}, mongo.ErrNoDocuments
	}
	c.Offers = append(c.Offers, offer)
	s.byID[id] = c
	return c, nil
}

func (s *stubRepo) SoftDelete(ctx context.Context, id string) error {
	c, ok := s.byID[id]
	if !ok || c.Deleted {
		return mongo.ErrNoDocuments
	}
	c.Deleted = true
	s.byID[id] = c
	return nil
}

func (s *stubRepo) List(ctx context.Context, filter ListFilter, limit, offset int64) ([]Case, error) {
	return nil, nil
}

func (s *stubRepo) Count(ctx context.Context, filter ListFilter) (int64, error) {
	return 0, nil
}

type stubMedicines struct {
	known map[string]catalog.Medicine
	calls int
}

func (s *stubMedicines) GetMany(ctx context.Context, ids []string) (map[string]catalog.Medicine, error) {
	s.calls++
	out := make(map[string]catalog.Medicine)
	for _, id := range ids {
		if med, ok := s.known[id]; ok {
			out[id] = med
		}
	}
	return out, nil
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func newTestService(repo *stubRepo, meds *stubMedicines) *Service {
	if meds == nil {
		meds = &stubMedicines{}
	}
	log := slog.New(slog.NewTextHandler(discard{}, nil))
	return NewService(repo, meds, log)
}

func seedCase(repo *stubRepo, status string) Case {
	c := Case{
		ID:          primitive.NewObjectID().Hex(),
		PatientID:   primitive.NewObjectID().Hex(),
		DoctorID:    primitive.NewObjectID().Hex(),
		SpecialtyID: primitive.NewObjectID().Hex(),
		Status:      status,
		Offers:      []Offer{},
	}
	if repo.byID == nil {
		repo.byID = make(map[string]Case)
	}
	repo.byID[c.ID] = c
	return c
}

func TestAddOfferUnknownMedicineAbortsWholeAppend(t *testing.T) {
	repo := &stubRepo{}
	c := seedCase(repo, StatusAssigned)

	knownID := primitive.NewObjectID().Hex()
	missingID := primitive.NewObjectID().Hex()
	meds := &stubMedicines{known: map[string]catalog.Medicine{
		knownID: {ID: knownID, Name: "Paracetamol", Unit: "tablet"},
	}}
	svc := newTestService(repo, meds)

	_, err := svc.AddOffer(context.Background(), c.DoctorID, accounts.RoleDoctor, c.ID, AddOfferRequest{
		Medications: []MedicationItemRequest{
			{MedicineID: knownID, Dosage: "500mg x2"},
			{MedicineID: missingID, Dosage: "10mg"},
		},
	})
	if !errors.Is(err, ErrUnknownMedicine) {
		t.Fatalf("expected ErrUnknownMedicine, got %v", err)
	}
	if !strings.Contains(err.Error(), missingID) {
		t.Fatalf("error should name the failing id, got %q", err.Error())
	}
	if repo.pushCalls != 0 {
		t.Fatalf("expected no push when any medicine is unknown, got %d", repo.pushCalls)
	}
}

func TestAddOfferSnapshotsCatalogFields(t *testing.T) {
	repo := &stubRepo{}
	c := seedCase(repo, StatusAssigned)

	medID := primitive.NewObjectID().Hex()
	meds := &stubMedicines{known: map[string]catalog.Medicine{
		medID: {ID: medID, Name: "Amoxicillin", Unit: "capsule", Concentration: "500mg"},
	}}
	svc := newTestService(repo, meds)

	updated, err := svc.AddOffer(context.Background(), c.DoctorID, accounts.RoleDoctor, c.ID, AddOfferRequest{
		Note: "after meals",
		Medications: []MedicationItemRequest{
			{MedicineID: medID, Dosage: "1 capsule x3", Duration: "7 days"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.pushCalls != 1 {
		t.Fatalf("expected exactly one push, got %d", repo.pushCalls)
	}
	if len(updated.Offers) != 1 {
		t.Fatalf("expected one offer, got %d", len(updated.Offers))
	}

	item := repo.pushedOffer.Medications[0]
	if item.Name != "Amoxicillin" || item.Unit != "capsule" || item.Concentration != "500mg" {
		t.Fatalf("snapshot should carry catalog fields, got %+v", item)
	}
	if item.Dosage != "1 capsule x3" || item.Duration != "7 days" {
		t.Fatalf("snapshot should carry prescription fields, got %+v", item)
	}
	if repo.pushedOffer.CreatedBy != c.DoctorID {
		t.Fatalf("offer creator mismatch: %s", repo.pushedOffer.CreatedBy)
	}
}

func TestAdvanceStatusRejectsBackwardMove(t *testing.T) {
	repo := &stubRepo{}
	c := seedCase(repo, StatusAssigned)
	svc := newTestService(repo, nil)

	_, err := svc.AdvanceStatus(context.Background(), c.PatientID, accounts.RolePatient, c.ID, StatusDraft)
	if !errors.Is(err, ErrStatusBackwards) {
		t.Fatalf("expected ErrStatusBackwards, got %v", err)
	}

	got, _ := repo.GetByID(context.Background(), c.ID)
	if got.Status != StatusAssigned {
		t.Fatalf("status must be unchanged, got %s", got.Status)
	}
}

func TestAdvanceStatusForward(t *testing.T) {
	repo := &stubRepo{}
	c := seedCase(repo, StatusDraft)
	svc := newTestService(repo, nil)

	updated, err := svc.AdvanceStatus(context.Background(), c.PatientID, accounts.RolePatient, c.ID, StatusPending)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != StatusPending {
		t.Fatalf("expected PENDING, got %s", updated.Status)
	}
}

func TestSoftDeletedCaseInvisible(t *testing.T) {
	repo := &stubRepo{}
	c := seedCase(repo, StatusDraft)
	svc := newTestService(repo, nil)

	if err := svc.Delete(context.Background(), c.PatientID, accounts.RolePatient, c.ID); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}

	_, err := svc.Get(context.Background(), c.PatientID, accounts.RolePatient, c.ID)
	if !errors.Is(err, ErrNotFoundOrDenied) {
		t.Fatalf("deleted case must read as not found, got %v", err)
	}
}

func TestForeignCaseConflated(t *testing.T) {
	repo := &stubRepo{}
	c := seedCase(repo, StatusDraft)
	svc := newTestService(repo, nil)

	_, err := svc.Get(context.Background(), primitive.NewObjectID().Hex(), accounts.RolePatient, c.ID)
	if !errors.Is(err, ErrNotFoundOrDenied) {
		t.Fatalf("expected ErrNotFoundOrDenied for foreign case, got %v", err)
	}
}
