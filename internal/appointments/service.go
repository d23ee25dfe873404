package appointments

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/MrDuking/talktodoc-backend-sub000/internal/accounts"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/catalog"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/metrics"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/notifications"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/retry"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/schedule"
)

var (
	ErrInvalidID = errors.New("invalid appointment id")
	// ErrNotFoundOrDenied deliberately conflates "does not exist" with
	// "not yours" so callers cannot probe for foreign ids.
	ErrNotFoundOrDenied  = errors.New("appointment not found or access denied")
	ErrInvalidState      = errors.New("invalid appointment state for this operation")
	ErrInvalidTimeRange  = errors.New("start time must be before end time")
	ErrDoctorNotFound    = errors.New("doctor not found")
	ErrSpecialtyMismatch = errors.New("doctor does not cover the appointment specialty")
	ErrDatePast          = errors.New("date is in the past")
)

type AccountDirectory interface {
	GetByID(ctx context.Context, id string) (accounts.Account, error)
}

type FeeSchedule interface {
	Get(ctx context.Context, id string) (catalog.DoctorLevel, error)
}

type SpecialtyCatalog interface {
	Get(ctx context.Context, id string) (catalog.Specialty, error)
}

type Mailer interface {
	SendHTML(ctx context.Context, toEmail, toName, subject, htmlBody string) (string, error)
}

type Service struct {
	repo        Repository
	directory   AccountDirectory
	levels      FeeSchedule
	specialties SpecialtyCatalog
	mailer      Mailer
	metrics     *metrics.Metrics
	location    *time.Location
	log         *slog.Logger
}

func NewService(
	repo Repository,
	directory AccountDirectory,
	levels FeeSchedule,
	specialties SpecialtyCatalog,
	mailer Mailer,
	m *metrics.Metrics,
	location *time.Location,
	log *slog.Logger,
) *Service {
	return &Service{
		repo:        repo,
		directory:   directory,
		levels:      levels,
		specialties: specialties,
		mailer:      mailer,
		metrics:     m,
		location:    location,
		log:         log,
	}
}

func (s *Service) Create(ctx context.Context, patientID string, req CreateRequest) (Appointment, error) {
	now := time.Now()
	appt := Appointment{
		ID:          primitive.NewObjectID().Hex(),
		PatientID:   patientID,
		SpecialtyID: req.SpecialtyID,
		Timezone:    req.Timezone,
		MedicalForm: req.MedicalForm,
		Notes:       req.Notes,
		Status:      StatusInit,
		Payment:     PaymentInfo{Status: PaymentStatusUnpaid},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, appt); err != nil {
		return Appointment{}, err
	}
	return appt, nil
}

// fetchOwned resolves an appointment for its owner, mapping both a bad id
// and a miss (absent or foreign) onto the conflated error.
func (s *Service) fetchOwned(ctx context.Context, id, patientID string) (Appointment, error) {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return Appointment{}, ErrInvalidID
	}
	appt, err := s.repo.GetOwned(ctx, id, patientID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Appointment{}, ErrNotFoundOrDenied
		}
		return Appointment{}, err
	}
	return appt, nil
}

func (s *Service) SubmitAnswers(ctx context.Context, patientID, id string, req AnswersRequest) (Appointment, error) {
	appt, err := s.fetchOwned(ctx, id, patientID)
	if err != nil {
		return Appointment{}, err
	}
	if appt.Status != StatusInit && appt.Status != StatusAnswered {
		return Appointment{}, ErrInvalidState
	}

	updated, err := s.repo.UpdateIf(ctx,
		bson.M{
			"_id":       id,
			"patientId": patientID,
			"status":    bson.M{"$in": []string{StatusInit, StatusAnswered}},
		},
		bson.M{
			"medicalForm": req.Answers,
			"status":      StatusAnswered,
			"updatedAt":   time.Now(),
		},
	)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Appointment{}, ErrInvalidState
		}
		return Appointment{}, err
	}
	return updated, nil
}

func (s *Service) SelectDoctor(ctx context.Context, patientID, id string, req SelectDoctorRequest) (Appointment, error) {
	// Slot and date sanity runs before any read or write.
	if _, err := schedule.ParseSlot(req.StartTime, req.EndTime); err != nil {
		if errors.Is(err, schedule.ErrInvalidRange) {
			return Appointment{}, ErrInvalidTimeRange
		}
		return Appointment{}, err
	}
	past, err := schedule.IsDatePast(req.Date, s.location, time.Now())
	if err != nil {
		return Appointment{}, err
	}
	if past {
		return Appointment{}, ErrDatePast
	}

	appt, err := s.fetchOwned(ctx, id, patientID)
	if err != nil {
		return Appointment{}, err
	}
	if appt.Status != StatusAnswered && appt.Status != StatusSelectedDoctor {
		return Appointment{}, ErrInvalidState
	}

	doctor, err := s.directory.GetByID(ctx, req.DoctorID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Appointment{}, ErrDoctorNotFound
		}
		return Appointment{}, err
	}
	if doctor.Role != accounts.RoleDoctor {
		return Appointment{}, ErrDoctorNotFound
	}
	if !contains(doctor.SpecialtyIDs, appt.SpecialtyID) {
		return Appointment{}, ErrSpecialtyMismatch
	}

	payment := PaymentInfo{Status: PaymentStatusUnpaid}
	if doctor.DoctorLevelID != "" {
		level, err := s.levels.Get(ctx, doctor.DoctorLevelID)
		if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
			return Appointment{}, err
		}
		payment.DoctorFee = level.BaseFee
		payment.PlatformFee = level.PlatformFee
	}
	payment.Total = payment.DoctorFee + payment.PlatformFee - payment.Discount

	updated, err := s.repo.UpdateIf(ctx,
		bson.M{
			"_id":       id,
			"patientId": patientID,
			"status":    bson.M{"$in": []string{StatusAnswered, StatusSelectedDoctor}},
		},
		bson.M{
			"doctorId":  req.DoctorID,
			"date":      req.Date,
			"startTime": req.StartTime,
			"endTime":   req.EndTime,
			"status":    StatusSelectedDoctor,
			"payment":   payment,
			"updatedAt": time.Now(),
		},
	)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Appointment{}, ErrInvalidState
		}
		return Appointment{}, err
	}
	return updated, nil
}

// MarkPaid flips the payment sub-record to PAID. It is only reachable from
// the verified payment callback; the filter requires a selected doctor and
// an unpaid sub-record, so replays and double submissions fall through to
// ErrInvalidState.
func (s *Service) MarkPaid(ctx context.Context, id, method string) (Appointment, error) {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return Appointment{}, ErrInvalidID
	}
	updated, err := s.repo.UpdateIf(ctx,
		bson.M{
			"_id":            id,
			"status":         StatusSelectedDoctor,
			"payment.status": PaymentStatusUnpaid,
		},
		bson.M{
			"status":         StatusPaid,
			"payment.status": PaymentStatusPaid,
			"payment.method": method,
			"updatedAt":      time.Now(),
		},
	)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Appointment{}, ErrInvalidState
		}
		return Appointment{}, err
	}
	return updated, nil
}

// MarkRefunded reopens the payment sub-record after a verified refund.
func (s *Service) MarkRefunded(ctx context.Context, id string) (Appointment, error) {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return Appointment{}, ErrInvalidID
	}
	updated, err := s.repo.UpdateIf(ctx,
		bson.M{
			"_id":            id,
			"payment.status": PaymentStatusPaid,
		},
		bson.M{
			"payment.status": PaymentStatusUnpaid,
			"updatedAt":      time.Now(),
		},
	)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Appointment{}, ErrInvalidState
		}
		return Appointment{}, err
	}
	return updated, nil
}

// Decide settles a paid appointment as confirmed or rejected. Only the
// assigned doctor may decide, and only from PAID.
func (s *Service) Decide(ctx context.Context, doctorID, id string, confirm bool, note string) (Appointment, error) {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return Appointment{}, ErrInvalidID
	}
	appt, err := s.repo.GetAssigned(ctx, id, doctorID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Appointment{}, ErrNotFoundOrDenied
		}
		return Appointment{}, err
	}
	if appt.Status != StatusPaid {
		return Appointment{}, ErrInvalidState
	}

	now := time.Now()
	status := StatusConfirmed
	if !confirm {
		status = StatusRejected
	}
	set := bson.M{
		"status":      status,
		"doctorNote":  note,
		"confirmedAt": now,
		"updatedAt":   now,
	}

	updated, err := s.repo.UpdateIf(ctx,
		bson.M{"_id": id, "doctorId": doctorID, "status": StatusPaid},
		set,
	)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Appointment{}, ErrInvalidState
		}
		return Appointment{}, err
	}

	// Emails are best effort: a failed send never rolls back the decision.
	s.sendDecisionEmails(ctx, updated, confirm)

	return updated, nil
}

func (s *Service) Cancel(ctx context.Context, patientID, id string) (Appointment, error) {
	appt, err := s.fetchOwned(ctx, id, patientID)
	if err != nil {
		return Appointment{}, err
	}
	switch appt.Status {
	case StatusInit, StatusAnswered, StatusSelectedDoctor:
	default:
		return Appointment{}, ErrInvalidState
	}

	now := time.Now()
	updated, err := s.repo.UpdateIf(ctx,
		bson.M{
			"_id":       id,
			"patientId": patientID,
			"status":    bson.M{"$in": []string{StatusInit, StatusAnswered, StatusSelectedDoctor}},
		},
		bson.M{
			"status":      StatusCancelled,
			"cancelledAt": now,
			"updatedAt":   now,
		},
	)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Appointment{}, ErrInvalidState
		}
		return Appointment{}, err
	}
	return updated, nil
}

func (s *Service) GetForActor(ctx context.Context, actorID, actorRole, id string) (Appointment, error) {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return Appointment{}, ErrInvalidID
	}
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Appointment{}, ErrNotFoundOrDenied
		}
		return Appointment{}, err
	}
	switch {
	case actorRole == accounts.RoleAdmin, actorRole == accounts.RoleEmployee:
	case appt.PatientID == actorID:
	case appt.DoctorID == actorID:
	default:
		return Appointment{}, ErrNotFoundOrDenied
	}
	return appt, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter, limit, offset int64) ([]Appointment, int64, error) {
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

func (s *Service) sendDecisionEmails(ctx context.Context, appt Appointment, confirmed bool) {
	if s.mailer == nil {
		return
	}

	patient, err := s.directory.GetByID(ctx, appt.PatientID)
	if err != nil {
		s.log.Error("decision email: patient lookup failed", slog.String("error", err.Error()))
		return
	}
	doctor, err := s.directory.GetByID(ctx, appt.DoctorID)
	if err != nil {
		s.log.Error("decision email: doctor lookup failed", slog.String("error", err.Error()))
		return
	}

	specialtyName := appt.SpecialtyID
	if specialty, err := s.specialties.Get(ctx, appt.SpecialtyID); err == nil {
		specialtyName = specialty.Name
	}

	subject := "Appointment confirmed"
	if !confirmed {
		subject = "Appointment declined"
	}

	data := notifications.AppointmentDecisionData{
		DoctorName:    doctor.Name,
		Specialty:     specialtyName,
		Date:          appt.Date,
		Slot:          appt.StartTime + "-" + appt.EndTime,
		Symptom:       symptomFromForm(appt.MedicalForm),
		Note:          appt.DoctorNote,
		AppointmentID: appt.ID,
		Confirmed:     confirmed,
	}

	recipients := []struct {
		email string
		name  string
	}{
		{patient.Email, patient.Name},
		{doctor.Email, doctor.Name},
	}

	policy := retry.DefaultPolicy()
	policy.Retryable = notifications.IsRetryable

	for _, rcpt := range recipients {
		data.Name = rcpt.name
		body, err := notifications.BuildAppointmentDecisionHTML(data)
		if err != nil {
			s.log.Error("decision email: template failed", slog.String("error", err.Error()))
			continue
		}
		email := rcpt.email
		name := rcpt.name
		err = retry.Do(ctx, policy, func(ctx context.Context) error {
			_, sendErr := s.mailer.SendHTML(ctx, email, name, subject, body)
			return sendErr
		})
		if err != nil {
			s.metrics.ObserveEmail("appointment_decision", "error")
			s.log.Error("decision email: send failed",
				slog.String("appointment_id", appt.ID),
				slog.String("to", email),
				slog.String("error", err.Error()),
			)
			continue
		}
		s.metrics.ObserveEmail("appointment_decision", "sent")
	}
}

// symptomFromForm pulls the one key the email template displays out of the
// free-form medical form. The rest of the map is never interpreted.
func symptomFromForm(form map[string]interface{}) string {
	if form == nil {
		return ""
	}
	if v, ok := form["symptom"].(string); ok {
		return v
	}
	return ""
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
