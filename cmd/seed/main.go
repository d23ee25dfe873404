package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/MrDuking/talktodoc-backend-sub000/internal/accounts"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/auth"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/config"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/db"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type seedSpecialty struct {
	Name        string
	Description string
}

type seedDoctorLevel struct {
	Name        string
	BaseFee     int64
	PlatformFee int64
}

type seedMedicine struct {
	Name          string
	Unit          string
	Concentration string
	Manufacturer  string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, cols, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Disconnect(context.Background())

	if err := db.EnsureIndexes(ctx, cols); err != nil {
		log.Fatal(err)
	}

	specialties := []seedSpecialty{
		{Name: "General Medicine", Description: "Common complaints and first-line diagnosis."},
		{Name: "Cardiology", Description: "Heart and circulatory conditions."},
		{Name: "Dermatology", Description: "Skin, hair and nail conditions."},
		{Name: "Pediatrics", Description: "Care for infants, children and adolescents."},
		{Name: "Gastroenterology", Description: "Digestive system disorders."},
		{Name: "Otolaryngology", Description: "Ear, nose and throat conditions."},
		{Name: "Psychiatry", Description: "Mental health consultations."},
	}

	for _, sp := range specialties {
		slug := utils.Slugify(sp.Name)
		update := bson.M{
			"$setOnInsert": bson.M{
				"_id":         primitive.NewObjectID().Hex(),
				"name":        sp.Name,
				"slug":        slug,
				"description": sp.Description,
				"createdAt":   time.Now().In(cfg.Timezone),
				"updatedAt":   time.Now().In(cfg.Timezone),
			},
		}
		if _, err := cols.Specialties.UpdateOne(ctx, bson.M{"slug": slug}, update, options.Update().SetUpsert(true)); err != nil {
			log.Fatalf("seed error for specialty %s: %v", sp.Name, err)
		}
	}

	levels := []seedDoctorLevel{
		{Name: "Resident", BaseFee: 150000, PlatformFee: 30000},
		{Name: "Specialist", BaseFee: 250000, PlatformFee: 50000},
		{Name: "Senior Specialist", BaseFee: 400000, PlatformFee: 80000},
		{Name: "Professor", BaseFee: 600000, PlatformFee: 100000},
	}

	for _, lv := range levels {
		update := bson.M{
			"$setOnInsert": bson.M{
				"_id":         primitive.NewObjectID().Hex(),
				"name":        lv.Name,
				"baseFee":     lv.BaseFee,
				"platformFee": lv.PlatformFee,
				"createdAt":   time.Now().In(cfg.Timezone),
				"updatedAt":   time.Now().In(cfg.Timezone),
			},
		}
		if _, err := cols.DoctorLevels.UpdateOne(ctx, bson.M{"name": lv.Name}, update, options.Update().SetUpsert(true)); err != nil {
			log.Fatalf("seed error for doctor level %s: %v", lv.Name, err)
		}
	}

	medicines := []seedMedicine{
		{Name: "Paracetamol", Unit: "tablet", Concentration: "500mg", Manufacturer: "Traphaco"},
		{Name: "Amoxicillin", Unit: "capsule", Concentration: "500mg", Manufacturer: "DHG Pharma"},
		{Name: "Loratadine", Unit: "tablet", Concentration: "10mg", Manufacturer: "Imexpharm"},
		{Name: "Omeprazole", Unit: "capsule", Concentration: "20mg", Manufacturer: "Pymepharco"},
		{Name: "Salbutamol", Unit: "inhaler", Concentration: "100mcg/dose", Manufacturer: "GSK"},
	}

	for _, med := range medicines {
		update := bson.M{
			"$setOnInsert": bson.M{
				"_id":           primitive.NewObjectID().Hex(),
				"name":          med.Name,
				"unit":          med.Unit,
				"concentration": med.Concentration,
				"manufacturer":  med.Manufacturer,
				"createdAt":     time.Now().In(cfg.Timezone),
				"updatedAt":     time.Now().In(cfg.Timezone),
			},
		}
		if _, err := cols.Medicines.UpdateOne(ctx, bson.M{"name": med.Name}, update, options.Update().SetUpsert(true)); err != nil {
			log.Fatalf("seed error for medicine %s: %v", med.Name, err)
		}
	}

	adminEmail := envOrDefault("ADMIN_EMAIL", "")
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminEmail == "" || adminPassword == "" {
		log.Println("seed admin: ADMIN_EMAIL or ADMIN_PASSWORD missing, skipping")
	} else if err := seedAdmin(ctx, cols, adminEmail, adminPassword, cfg.Timezone); err != nil {
		log.Fatalf("seed admin error: %v", err)
	}

	log.Println("seed completed")
}

func seedAdmin(ctx context.Context, cols *db.Collections, email, password string, loc *time.Location) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	now := time.Now().In(loc)
	update := bson.M{
		"$set": bson.M{
			"passwordHash": hash,
			"role":         accounts.RoleAdmin,
			"verified":     true,
			"updatedAt":    now,
		},
		"$setOnInsert": bson.M{
			"_id":       primitive.NewObjectID().Hex(),
			"name":      envOrDefault("ADMIN_NAME", "Administrator"),
			"email":     email,
			"createdAt": now,
		},
	}
	_, err = cols.Accounts.UpdateOne(ctx, bson.M{"email": email}, update, options.Update().SetUpsert(true))
	return err
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
