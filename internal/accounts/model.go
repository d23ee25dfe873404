package accounts

import "time"

const (
	RolePatient  = "patient"
	RoleDoctor   = "doctor"
	RoleEmployee = "employee"
	RoleAdmin    = "admin"
)

type Account struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	Role         string    `bson:"role" json:"role"`
	Name         string    `bson:"name" json:"name"`
	Email        string    `bson:"email" json:"email"`
	Phone        string    `bson:"phone" json:"phone"`
	PasswordHash string    `bson:"passwordHash" json:"-"`
	Verified     bool      `bson:"verified" json:"verified"`
	ReferralCode string    `bson:"referralCode,omitempty" json:"referralCode,omitempty"`
	ReferredBy   string    `bson:"referredBy,omitempty" json:"referredBy,omitempty"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`

	// Doctor-only fields.
	SpecialtyIDs  []string `bson:"specialtyIds,omitempty" json:"specialtyIds,omitempty"`
	DoctorLevelID string   `bson:"doctorLevelId,omitempty" json:"doctorLevelId,omitempty"`
	HospitalID    string   `bson:"hospitalId,omitempty" json:"hospitalId,omitempty"`
	Biography     string   `bson:"biography,omitempty" json:"biography,omitempty"`

	// Employee-only fields.
	Department string `bson:"department,omitempty" json:"department,omitempty"`
}

type RegisterRequest struct {
	Role     string `json:"role" validate:"required,oneof=patient doctor employee"`
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required,phone"`
	Password string `json:"password" validate:"required,min=8"`

	SpecialtyIDs  []string `json:"specialtyIds" validate:"omitempty,dive,objectid"`
	DoctorLevelID string   `json:"doctorLevelId" validate:"omitempty,objectid"`
	HospitalID    string   `json:"hospitalId" validate:"omitempty,objectid"`
	Department    string   `json:"department"`
	ReferralCode  string   `json:"referralCode"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type UpdateRequest struct {
	Name          string   `json:"name"`
	Phone         string   `json:"phone" validate:"omitempty,phone"`
	Biography     string   `json:"biography"`
	SpecialtyIDs  []string `json:"specialtyIds" validate:"omitempty,dive,objectid"`
	DoctorLevelID string   `json:"doctorLevelId" validate:"omitempty,objectid"`
	HospitalID    string   `json:"hospitalId" validate:"omitempty,objectid"`
	Department    string   `json:"department"`
}

type ListFilter struct {
	Role        string
	Name        string
	SpecialtyID string
}
