package appointments

import "time"

// Appointment status lifecycle. The patient drives the left half, the
// verified payment callback moves UNPAID bookings to PAID, and the assigned
// doctor settles the outcome:
//
//	INIT -> ANSWERED -> SELECTED_DOCTOR -> PAID -> CONFIRMED | REJECTED
//	INIT | ANSWERED | SELECTED_DOCTOR  -> CANCELLED
const (
	StatusInit           = "INIT"
	StatusAnswered       = "ANSWERED"
	StatusSelectedDoctor = "SELECTED_DOCTOR"
	StatusPaid           = "PAID"
	StatusConfirmed      = "CONFIRMED"
	StatusRejected       = "REJECTED"
	StatusCancelled      = "CANCELLED"

	PaymentStatusUnpaid = "UNPAID"
	PaymentStatusPaid   = "PAID"

	PaymentMethodVNPay = "VNPAY"
)

// PaymentInfo is the fee sub-record attached once a doctor and slot are
// chosen. Amounts are in VND (no sub-unit).
type PaymentInfo struct {
	PlatformFee int64  `bson:"platformFee" json:"platformFee"`
	DoctorFee   int64  `bson:"doctorFee" json:"doctorFee"`
	Discount    int64  `bson:"discount" json:"discount"`
	Total       int64  `bson:"total" json:"total"`
	Status      string `bson:"status" json:"status"`
	Method      string `bson:"method,omitempty" json:"method,omitempty"`
}

type Appointment struct {
	ID          string                 `bson:"_id,omitempty" json:"id"`
	PatientID   string                 `bson:"patientId" json:"patientId"`
	DoctorID    string                 `bson:"doctorId,omitempty" json:"doctorId,omitempty"`
	SpecialtyID string                 `bson:"specialtyId" json:"specialtyId"`
	Date        string                 `bson:"date,omitempty" json:"date,omitempty"`
	StartTime   string                 `bson:"startTime,omitempty" json:"startTime,omitempty"`
	EndTime     string                 `bson:"endTime,omitempty" json:"endTime,omitempty"`
	Timezone    string                 `bson:"timezone" json:"timezone"`
	MedicalForm map[string]interface{} `bson:"medicalForm,omitempty" json:"medicalForm,omitempty"`
	Status      string                 `bson:"status" json:"status"`
	DoctorNote  string                 `bson:"doctorNote,omitempty" json:"doctorNote,omitempty"`
	Notes       string                 `bson:"notes,omitempty" json:"notes,omitempty"`
	Payment     PaymentInfo            `bson:"payment" json:"payment"`
	ConfirmedAt *time.Time             `bson:"confirmedAt,omitempty" json:"confirmedAt,omitempty"`
	CancelledAt *time.Time             `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`
	CreatedAt   time.Time              `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time              `bson:"updatedAt" json:"updatedAt"`
}

type CreateRequest struct {
	SpecialtyID string                 `json:"specialtyId" validate:"required,objectid"`
	Timezone    string                 `json:"timezone" validate:"required,timezone"`
	MedicalForm map[string]interface{} `json:"medicalForm"`
	Notes       string                 `json:"notes"`
}

type AnswersRequest struct {
	Answers map[string]interface{} `json:"answers" validate:"required"`
}

type SelectDoctorRequest struct {
	DoctorID  string `json:"doctorId" validate:"required,objectid"`
	Date      string `json:"date" validate:"required,date"`
	StartTime string `json:"startTime" validate:"required,clock"`
	EndTime   string `json:"endTime" validate:"required,clock"`
}

type DecisionRequest struct {
	Note string `json:"note"`
}

type ListFilter struct {
	PatientID string
	DoctorID  string
	Status    string
}
