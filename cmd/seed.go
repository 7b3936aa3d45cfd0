/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopadmin/apiserver/internal/auth"
	"github.com/shopadmin/apiserver/internal/db"
	"github.com/shopadmin/apiserver/internal/store"
	"github.com/shopadmin/apiserver/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var seedPassword string

// seedCmd loads sample identities and catalogue data. Seeded identities have
// no provider, so the first sign-in through a federated provider claims them.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert sample users, categories, and statuses",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger := setup()
		defer logger.Sync()

		if err := auth.ValidatePassword(seedPassword); err != nil {
			return fmt.Errorf("--password: %w", err)
		}

		conn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer conn.Close()

		hash, err := auth.NewBcryptHasher().Hash(seedPassword)
		if err != nil {
			return err
		}
		return seed(cmd.Context(), conn, hash, logger)
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().StringVar(&seedPassword, "password", "", "Password given to every sample user")
	_ = seedCmd.MarkFlagRequired("password")
}

func seed(ctx context.Context, conn *sql.DB, passwordHash string, logger *zap.Logger) error {
	users := store.NewUserRepository(conn)
	for _, sample := range []types.Identity{
		{Email: "admin@example.com", FirstName: "Ada", LastName: "Admin", IsAdmin: true},
		{Email: "member@example.com", FirstName: "Milo", LastName: "Member"},
	} {
		sample.PasswordHash = passwordHash
		sample.DisplayName = sample.FirstName + " " + sample.LastName
		sample.IsActive = true
		if _, err := users.Create(ctx, sample); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				logger.Info("user already seeded", zap.String("email", sample.Email))
				continue
			}
			return fmt.Errorf("seed user %s: %w", sample.Email, err)
		}
		logger.Info("seeded user", zap.String("email", sample.Email))
	}

	categories := store.NewCategoryRepository(conn)
	parent, err := categories.Create(ctx, types.Category{CategoryName: "Apparel", Description: "Clothing and accessories", IsActive: true})
	switch {
	case errors.Is(err, store.ErrAlreadyExists):
		logger.Info("categories already seeded")
	case err != nil:
		return fmt.Errorf("seed categories: %w", err)
	default:
		for _, name := range []string{"Shirts", "Shoes"} {
			if _, err := categories.Create(ctx, types.Category{CategoryName: name, ParentCategoryID: parent.ID, IsActive: true}); err != nil && !errors.Is(err, store.ErrAlreadyExists) {
				return fmt.Errorf("seed category %s: %w", name, err)
			}
		}
	}

	statuses := store.NewStatusRepository(conn)
	for _, sample := range []types.Status{
		{StatusName: "Pending", TypeID: 1, Description: "Order received"},
		{StatusName: "Shipped", TypeID: 1, Description: "Order handed to the carrier"},
		{StatusName: "Delivered", TypeID: 1, Description: "Order delivered"},
		{StatusName: "Paid", TypeID: 2, Description: "Payment captured"},
	} {
		sample.IsActive = true
		if _, err := statuses.Create(ctx, sample); err != nil && !errors.Is(err, store.ErrAlreadyExists) {
			return fmt.Errorf("seed status %s: %w", sample.StatusName, err)
		}
	}

	logger.Info("database seeded")
	return nil
}
