package cases

import "time"

// Case status advances monotonically, never backwards:
//
//	DRAFT -> PENDING -> ASSIGNED -> COMPLETED
const (
	StatusDraft     = "DRAFT"
	StatusPending   = "PENDING"
	StatusAssigned  = "ASSIGNED"
	StatusCompleted = "COMPLETED"
)

var statusRank = map[string]int{
	StatusDraft:     0,
	StatusPending:   1,
	StatusAssigned:  2,
	StatusCompleted: 3,
}

// MedicationItem is a point-in-time snapshot of a catalog medicine plus the
// prescription specifics. It is copied into the offer at creation and never
// re-read from the catalog, so later catalog edits cannot rewrite history.
type MedicationItem struct {
	MedicineID    string `bson:"medicineId" json:"medicineId"`
	Name          string `bson:"name" json:"name"`
	Unit          string `bson:"unit" json:"unit"`
	Concentration string `bson:"concentration,omitempty" json:"concentration,omitempty"`
	Dosage        string `bson:"dosage" json:"dosage"`
	Usage         string `bson:"usage,omitempty" json:"usage,omitempty"`
	Duration      string `bson:"duration,omitempty" json:"duration,omitempty"`
}

type Offer struct {
	ID          string           `bson:"id" json:"id"`
	CreatedBy   string           `bson:"createdBy" json:"createdBy"`
	Note        string           `bson:"note,omitempty" json:"note,omitempty"`
	Medications []MedicationItem `bson:"medications" json:"medications"`
	CreatedAt   time.Time        `bson:"createdAt" json:"createdAt"`
}

type Case struct {
	ID            string                 `bson:"_id,omitempty" json:"id"`
	PatientID     string                 `bson:"patientId" json:"patientId"`
	DoctorID      string                 `bson:"doctorId,omitempty" json:"doctorId,omitempty"`
	SpecialtyID   string                 `bson:"specialtyId" json:"specialtyId"`
	AppointmentID string                 `bson:"appointmentId,omitempty" json:"appointmentId,omitempty"`
	MedicalForm   map[string]interface{} `bson:"medicalForm,omitempty" json:"medicalForm,omitempty"`
	Status        string                 `bson:"status" json:"status"`
	Offers        []Offer                `bson:"offers" json:"offers"`
	Deleted       bool                   `bson:"deleted" json:"-"`
	CreatedAt     time.Time              `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time              `bson:"updatedAt" json:"updatedAt"`
}

type CreateRequest struct {
	SpecialtyID   string                 `json:"specialtyId" validate:"required,objectid"`
	AppointmentID string                 `json:"appointmentId" validate:"omitempty,objectid"`
	MedicalForm   map[string]interface{} `json:"medicalForm"`
}

type UpdateFormRequest struct {
	MedicalForm map[string]interface{} `json:"medicalForm" validate:"required"`
}

type StatusRequest struct {
	Status string `json:"status" validate:"required,oneof=DRAFT PENDING ASSIGNED COMPLETED"`
}

type AssignRequest struct {
	DoctorID string `json:"doctorId" validate:"required,objectid"`
}

type MedicationItemRequest struct {
	MedicineID string `json:"medicineId" validate:"required,objectid"`
	Dosage     string `json:"dosage" validate:"required"`
	Usage      string `json:"usage"`
	Duration   string `json:"duration"`
}

type AddOfferRequest struct {
	Note        string                  `json:"note"`
	Medications []MedicationItemRequest `json:"medications" validate:"required,min=1,dive"`
}

type ListFilter struct {
	PatientID string
	DoctorID  string
	Status    string
}
