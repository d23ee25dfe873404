package catalog

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/MrDuking/talktodoc-backend-sub000/internal/utils"
)

// Build/set hooks for each resource, consumed by the generic handler.

func BuildHospital(req HospitalRequest, id string, now time.Time) Hospital {
	return Hospital{
		ID:        id,
		Name:      strings.TrimSpace(req.Name),
		Address:   strings.TrimSpace(req.Address),
		Phone:     strings.TrimSpace(req.Phone),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func SetHospital(req HospitalRequest, now time.Time) bson.M {
	return bson.M{
		"name":      strings.TrimSpace(req.Name),
		"address":   strings.TrimSpace(req.Address),
		"phone":     strings.TrimSpace(req.Phone),
		"updatedAt": now,
	}
}

func BuildSpecialty(req SpecialtyRequest, id string, now time.Time) Specialty {
	name := strings.TrimSpace(req.Name)
	return Specialty{
		ID:          id,
		Name:        name,
		Slug:        utils.Slugify(name),
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func SetSpecialty(req SpecialtyRequest, now time.Time) bson.M {
	name := strings.TrimSpace(req.Name)
	return bson.M{
		"name":        name,
		"slug":        utils.Slugify(name),
		"description": strings.TrimSpace(req.Description),
		"updatedAt":   now,
	}
}

func BuildPharmacy(req PharmacyRequest, id string, now time.Time) Pharmacy {
	return Pharmacy{
		ID:        id,
		Name:      strings.TrimSpace(req.Name),
		Address:   strings.TrimSpace(req.Address),
		Phone:     strings.TrimSpace(req.Phone),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func SetPharmacy(req PharmacyRequest, now time.Time) bson.M {
	return bson.M{
		"name":      strings.TrimSpace(req.Name),
		"address":   strings.TrimSpace(req.Address),
		"phone":     strings.TrimSpace(req.Phone),
		"updatedAt": now,
	}
}

func BuildDoctorLevel(req DoctorLevelRequest, id string, now time.Time) DoctorLevel {
	return DoctorLevel{
		ID:          id,
		Name:        strings.TrimSpace(req.Name),
		BaseFee:     req.BaseFee,
		PlatformFee: req.PlatformFee,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func SetDoctorLevel(req DoctorLevelRequest, now time.Time) bson.M {
	return bson.M{
		"name":        strings.TrimSpace(req.Name),
		"baseFee":     req.BaseFee,
		"platformFee": req.PlatformFee,
		"updatedAt":   now,
	}
}

func BuildMedicine(req MedicineRequest, id string, now time.Time) Medicine {
	return Medicine{
		ID:            id,
		Name:          strings.TrimSpace(req.Name),
		Unit:          strings.TrimSpace(req.Unit),
		Concentration: strings.TrimSpace(req.Concentration),
		Manufacturer:  strings.TrimSpace(req.Manufacturer),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func SetMedicine(req MedicineRequest, now time.Time) bson.M {
	return bson.M{
		"name":          strings.TrimSpace(req.Name),
		"unit":          strings.TrimSpace(req.Unit),
		"concentration": strings.TrimSpace(req.Concentration),
		"manufacturer":  strings.TrimSpace(req.Manufacturer),
		"updatedAt":     now,
	}
}
