package main

import (
	"context"
	"flag"
	"log"

	"go-stock-ledger/internal/config"
	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/repository"
	"go-stock-ledger/pkg/database"
)

func main() {
	username := flag.String("user", "admin", "account to reset")
	newPassword := flag.String("password", "", "new password (at least 6 characters)")
	flag.Parse()

	if len(*newPassword) < 6 {
		log.Fatal("❌ -password must have at least 6 characters")
	}

	// 1. Load Env
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ config: %v", err)
	}

	// 2. Setup Database
	db, err := database.Connect(cfg.DSN(), false)
	if err != nil {
		log.Fatalf("❌ database: %v", err)
	}
	users := repository.NewUserRepo(db)
	ctx := context.Background()

	// 3. Find user
	user, err := users.FindByUsername(ctx, *username)
	if err != nil {
		log.Fatalf("❌ User %s not found in database: %v", *username, err)
	}

	// 4. Hash new password
	hashed := model.User{}
	if err := hashed.SetPassword(*newPassword); err != nil {
		log.Fatalf("❌ Failed to hash password: %v", err)
	}

	// 5. Update
	if err := users.UpdatePassword(ctx, user.ID, hashed.Password); err != nil {
		log.Fatalf("❌ Failed to update password in DB: %v", err)
	}

	log.Printf("✅ Success! Password for %s has been reset", user.Username)
}
