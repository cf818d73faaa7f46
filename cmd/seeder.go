package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/frahmantamala/voucher-store/internal/pricing"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with an admin account, default price margins and a demo catalog for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, _, err := bootstrap()
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		database, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer database.Close()
		db := database.Gorm

		if clearData {
			clearSeedData(db)
		}

		password := os.Getenv("SEED_ADMIN_PASSWORD")
		if password == "" {
			password = "admin123"
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), cfg.Security.BCryptCost)
		if err != nil {
			log.Fatalf("failed to hash password: %v", err)
		}

		users := []struct {
			Email    string
			FullName string
			Phone    string
			IsAdmin  bool
		}{
			{"admin@vexacell.id", "Vexa Admin", "081100000001", true},
			{"budi@mail.com", "Budi Santoso", "081234567890", false},
		}
		for _, u := range users {
			var exists int
			if err := db.Raw("SELECT 1 FROM users WHERE email = ?", u.Email).Row().Scan(&exists); err == nil {
				fmt.Println("user already exists:", u.Email)
				continue
			}
			if err := db.Exec("INSERT INTO users (email, password_hash, full_name, phone, balance, is_active, is_admin, created_at, updated_at) VALUES (?, ?, ?, ?, 0, true, ?, now(), now())",
				u.Email, string(hash), u.FullName, u.Phone, u.IsAdmin).Error; err != nil {
				log.Fatalf("failed to insert user %s: %v", u.Email, err)
			}
			fmt.Println("Seeded user:", u.Email)
		}

		// category-wide margins; provider_code '' applies to every provider in the category
		margins := []struct {
			Category string
			Type     string
			Value    int64
		}{
			{"pulsa", pricing.TypePercentage, 5},
			{"data", pricing.TypePercentage, 5},
			{"pln", pricing.TypePercentage, 8},
			{"ewallet", pricing.TypeFixed, 1500},
			{"game", pricing.TypePercentage, 7},
		}
		for _, m := range margins {
			if err := db.Exec("INSERT INTO price_margins (category, provider_code, margin_type, margin_value, is_active, created_at, updated_at) VALUES (?, '', ?, ?, true, now(), now()) ON CONFLICT (category, provider_code) DO NOTHING",
				m.Category, m.Type, decimal.NewFromInt(m.Value)).Error; err != nil {
				log.Fatalf("failed to insert margin %s: %v", m.Category, err)
			}
		}
		fmt.Println("Default margins seeded")

		if err := db.Exec("INSERT INTO providers (provider_code, provider_name, category, is_active, created_at, updated_at) VALUES ('PLN', 'PLN', 'pln', true, now(), now()) ON CONFLICT (provider_code) DO NOTHING").Error; err != nil {
			log.Fatalf("failed to insert provider: %v", err)
		}
		var providerID int64
		if err := db.Raw("SELECT id FROM providers WHERE provider_code = 'PLN'").Row().Scan(&providerID); err != nil {
			log.Fatalf("provider not found after insert: %v", err)
		}

		demo := []struct {
			Code    string
			Name    string
			Nominal string
			Price   int64
		}{
			{"PLN-20000", "Token PLN 20.000", "20000", 19000},
			{"PLN-50000", "Token PLN 50.000", "50000", 47000},
			{"PLN-100000", "Token PLN 100.000", "100000", 94500},
		}
		rule := pricing.Rule{Type: pricing.TypePercentage, Value: decimal.NewFromInt(8)}
		for _, v := range demo {
			if err := db.Exec("INSERT INTO vouchers (voucher_code, provider_id, category, name, nominal, description, price_original, price_sell, margin, is_active, created_at, updated_at) VALUES (?, ?, 'pln', ?, ?, '', ?, ?, ?, true, now(), now()) ON CONFLICT (voucher_code) DO NOTHING",
				v.Code, providerID, v.Name, v.Nominal, v.Price, pricing.SellPrice(v.Price, rule), rule.Value).Error; err != nil {
				log.Fatalf("failed to insert voucher %s: %v", v.Code, err)
			}
			fmt.Printf("Seeded voucher: %s\n", v.Code)
		}

		fmt.Println("Demo catalog seeded successfully")
	},
}

// clearSeedData removes catalog and ledger rows, children first.
func clearSeedData(db *gorm.DB) {
	tables := []string{"receipts", "fulfillment_attempts", "payments", "transactions", "vouchers", "providers", "price_margins", "users"}
	for _, t := range tables {
		if err := db.Exec(fmt.Sprintf("DELETE FROM %s", t)).Error; err != nil {
			log.Fatalf("failed to clear %s: %v", t, err)
		}
		fmt.Println("Cleared table:", t)
	}
}
