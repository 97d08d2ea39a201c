package config

import (
	"errors"
	"log"

	"barangay-services/internal/adapters/persistence/models"
	"barangay-services/internal/pkg/password"

	"gorm.io/gorm"
)

// regionSeed is the initial municipality and barangay directory
var regionSeed = map[string][]string{
	"Santa Maria": {"Poblacion", "San Isidro", "San Jose", "Santo Niño"},
	"San Rafael":  {"Banca-Banca", "Caingin", "Maronquillo", "Pantubig"},
}

// SeedRegions creates missing municipalities and barangays
func SeedRegions(db *gorm.DB) error {
	for municipalityName, barangays := range regionSeed {
		municipality := models.Municipality{Name: municipalityName}
		if err := db.Where("name = ?", municipalityName).FirstOrCreate(&municipality).Error; err != nil {
			return err
		}

		for _, name := range barangays {
			barangay := models.Barangay{Name: name, MunicipalityID: municipality.ID}
			result := db.Where("name = ? AND municipality_id = ?", name, municipality.ID).FirstOrCreate(&barangay)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected > 0 {
				log.Printf("   Created barangay: %s, %s", name, municipalityName)
			}
		}
	}

	log.Println("✅ Regions seeded successfully")
	return nil
}

// SeedAdmin creates the first admin account from ADMIN_USERNAME, ADMIN_EMAIL
// and ADMIN_PASSWORD when no admin exists yet. The account is created verified.
func SeedAdmin(db *gorm.DB, cfg *Config) error {
	var count int64
	if err := db.Model(&models.User{}).Where("role = ?", "admin").Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	email := getEnv("ADMIN_EMAIL", "")
	plain := getEnv("ADMIN_PASSWORD", "")
	if email == "" || plain == "" {
		if cfg.IsProd() {
			log.Println("⚠️ Skipping admin seed: ADMIN_EMAIL and ADMIN_PASSWORD are not set")
			return nil
		}
		email, plain = "admin@barangay.local", "admin123456"
	}
	if !password.ValidatePassword(plain) {
		return errors.New("ADMIN_PASSWORD is too short")
	}

	hashed, err := password.Hash(plain)
	if err != nil {
		return err
	}

	admin := &models.User{
		Username:   getEnv("ADMIN_USERNAME", "admin"),
		Email:      email,
		Password:   hashed,
		FirstName:  "System",
		LastName:   "Administrator",
		Role:       "admin",
		Status:     "active",
		IsVerified: true,
	}
	if err := db.Create(admin).Error; err != nil {
		return err
	}

	log.Printf("✅ Admin user created: %s", admin.Username)
	return nil
}
