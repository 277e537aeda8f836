package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"nearbuy/internal/adapter/repository"
	"nearbuy/internal/infrastructure/database"
	"nearbuy/internal/usecase"
	"nearbuy/pkg/config"
	"nearbuy/pkg/logger"
)

// openStore loads configuration from the environment and connects the configured backend.
func openStore(ctx context.Context) (*repository.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger.Configure(cfg.Environment, cfg.LogLevel)
	return repository.OpenStore(ctx, cfg)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the relational schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			// opening a relational store migrates it
			store, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			if store.DB == nil {
				fmt.Println("Firestore needs no migration")
				return nil
			}
			fmt.Println("Schema is up to date")
			return nil
		},
	}
}

func resetCmd() *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop every table and recreate the schema",
		Long: `Drop every nearbuy table and recreate the schema. All data is lost.

Examples:
  nearbuyctl reset --yes`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmed {
				return fmt.Errorf("refusing to reset without --yes")
			}

			store, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			if store.DB == nil {
				return fmt.Errorf("reset is only supported for the postgres and sqlite drivers")
			}
			if err := database.Reset(store.DB); err != nil {
				return fmt.Errorf("reset database: %w", err)
			}
			fmt.Println("Database reset")
			return nil
		},
	}

	cmd.Flags().BoolVar(&confirmed, "yes", false, "confirm that all data will be deleted")
	return cmd
}

func createAdminCmd() *cobra.Command {
	var email, password, name string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Register a new account with admin rights",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			admin := usecase.NewAdminUseCase(store.Users, store.UnitOfWork)
			user, err := admin.CreateAdmin(cmd.Context(), email, password, name)
			if err != nil {
				return err
			}
			fmt.Printf("Created admin %s (%s)\n", user.Email, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "admin email address")
	cmd.Flags().StringVarP(&password, "password", "p", "", "admin password, at least 6 characters")
	cmd.Flags().StringVarP(&name, "name", "n", "Administrator", "display name")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}

func promoteCmd() *cobra.Command {
	var revoke bool

	cmd := &cobra.Command{
		Use:   "promote [email]",
		Short: "Grant admin rights to an existing account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			admin := usecase.NewAdminUseCase(store.Users, store.UnitOfWork)
			user, err := admin.SetAdmin(cmd.Context(), args[0], !revoke)
			if err != nil {
				return err
			}

			if user.IsAdmin {
				fmt.Printf("%s is now an admin\n", user.Email)
			} else {
				fmt.Printf("%s is no longer an admin\n", user.Email)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&revoke, "revoke", false, "remove admin rights instead")
	return cmd
}
