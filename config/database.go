package config

import (
	"fmt"
	"log"

	"github.com/adithyan-km/PaySphere/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// InitDB initializes the database connection and performs migrations
func InitDB() {
	config, err := LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		config.DBHost, config.DBPort, config.DBUser, config.DBPassword, config.DBName)

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	err = DB.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Coupon{},
		&models.CouponProduct{},
		&models.CouponRedemption{},
		&models.OrderBump{},
		&models.Settlement{},
		&models.AccessGrant{},
		&models.GuestPurchase{},
		&models.OneTimeOffer{},
		&models.OTOAcceptance{},
	)
	if err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	ensureCouponCodeIndex()
}

// ensureCouponCodeIndex makes coupon code lookups case-insensitive at the
// storage layer, matching how codes are compared everywhere else.
func ensureCouponCodeIndex() {
	err := DB.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_coupons_code_lower
		ON coupons (LOWER(code))
		WHERE deleted_at IS NULL
	`).Error
	if err != nil {
		log.Printf("Failed to create case-insensitive coupon code index: %v", err)
	}
}
