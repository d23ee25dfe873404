package catalog

import "time"

type Hospital struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Address   string    `bson:"address" json:"address"`
	Phone     string    `bson:"phone" json:"phone"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

type HospitalRequest struct {
	Name    string `json:"name" validate:"required"`
	Address string `json:"address" validate:"required"`
	Phone   string `json:"phone" validate:"omitempty,phone"`
}

type Specialty struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	Name        string    `bson:"name" json:"name"`
	Slug        string    `bson:"slug" json:"slug"`
	Description string    `bson:"description" json:"description"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}

type SpecialtyRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

type Pharmacy struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Address   string    `bson:"address" json:"address"`
	Phone     string    `bson:"phone" json:"phone"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

type PharmacyRequest struct {
	Name    string `json:"name" validate:"required"`
	Address string `json:"address" validate:"required"`
	Phone   string `json:"phone" validate:"omitempty,phone"`
}

// DoctorLevel carries the consultation fee schedule applied when a doctor
// of that level is selected for an appointment.
type DoctorLevel struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	Name        string    `bson:"name" json:"name"`
	BaseFee     int64     `bson:"baseFee" json:"baseFee"`
	PlatformFee int64     `bson:"platformFee" json:"platformFee"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}

type DoctorLevelRequest struct {
	Name        string `json:"name" validate:"required"`
	BaseFee     int64  `json:"baseFee" validate:"gte=0"`
	PlatformFee int64  `json:"platformFee" validate:"gte=0"`
}

type Medicine struct {
	ID            string    `bson:"_id,omitempty" json:"id"`
	Name          string    `bson:"name" json:"name"`
	Unit          string    `bson:"unit" json:"unit"`
	Concentration string    `bson:"concentration" json:"concentration"`
	Manufacturer  string    `bson:"manufacturer" json:"manufacturer"`
	CreatedAt     time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt" json:"updatedAt"`
}

type MedicineRequest struct {
	Name          string `json:"name" validate:"required"`
	Unit          string `json:"unit" validate:"required"`
	Concentration string `json:"concentration"`
	Manufacturer  string `json:"manufacturer"`
}

func (h Hospital) GetID() string    { return h.ID }
func (s Specialty) GetID() string   { return s.ID }
func (p Pharmacy) GetID() string    { return p.ID }
func (d DoctorLevel) GetID() string { return d.ID }
func (m Medicine) GetID() string    { return m.ID }
