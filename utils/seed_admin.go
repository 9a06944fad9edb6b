package utils

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/princinho/storefront/models"
)

// AdminUpserter is the slice of the user store seeding needs.
type AdminUpserter interface {
	UpsertUserByEmail(ctx context.Context, u *models.User) (*models.User, bool, error)
}

// SeedAdminUser creates the bootstrap admin unless a user with that email already exists.
func SeedAdminUser(ctx context.Context, users AdminUpserter, email, pass string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || pass == "" {
		return fmt.Errorf("missing ADMIN_EMAIL or ADMIN_PASSWORD env vars")
	}

	hash, err := HashPassword(pass)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	now := time.Now().UTC()
	_, created, err := users.UpsertUserByEmail(ctx, &models.User{
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return fmt.Errorf("seed admin upsert failed: %w", err)
	}

	if created {
		log.Println("[seed.admin] admin user seeded:", email)
	} else {
		log.Println("[seed.admin] admin user already exists:", email)
	}
	return nil
}
