package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"pairchat/backend/internal/config"
	"pairchat/backend/internal/models"
	"pairchat/backend/internal/storage"

	"github.com/spf13/cobra"
)

type dbFlags struct {
	driver string
	dsn    string
}

func newRootCmd() *cobra.Command {
	flags := &dbFlags{}

	cmd := &cobra.Command{
		Use:           "admin",
		Short:         "pairchat admin tools",
		Long:          "Database maintenance for the pairchat backend: migrations, demo data and user listing.",
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg := config.Load()
			if flags.driver == "" {
				flags.driver = cfg.DBDriver
			}
			if flags.dsn == "" {
				flags.dsn = cfg.DatabaseURL
			}
		},
	}
	cmd.PersistentFlags().StringVar(&flags.driver, "driver", "", "database driver: postgres or sqlite (default $DB_DRIVER)")
	cmd.PersistentFlags().StringVar(&flags.dsn, "dsn", "", "database DSN (default $DATABASE_URL)")

	cmd.AddCommand(newMigrateCmd(flags))
	cmd.AddCommand(newSeedCmd(flags))
	cmd.AddCommand(newUsersCmd(flags))
	return cmd
}

func openStore(flags *dbFlags, migrate bool) (*storage.Service, func(), error) {
	db, err := storage.Open(flags.driver, flags.dsn)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	if migrate {
		if err := storage.AutoMigrate(db); err != nil {
			closeFn()
			return nil, nil, err
		}
	}
	return storage.NewStorageService(db), closeFn, nil
}

func newMigrateCmd(flags *dbFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update all tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, closeFn, err := openStore(flags, true)
			if err != nil {
				return err
			}
			defer closeFn()
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %d models (%s)\n", len(storage.AllModels()), flags.driver)
			return nil
		},
	}
}

func newSeedCmd(flags *dbFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the demo pair A/B with a short conversation",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeFn, err := openStore(flags, true)
			if err != nil {
				return err
			}
			defer closeFn()
			return seed(cmd.Context(), store, cmd.OutOrStdout(), time.Now())
		},
	}
}

func newUsersCmd(flags *dbFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List users and their last known online flag",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeFn, err := openStore(flags, false)
			if err != nil {
				return err
			}
			defer closeFn()
			return listUsers(cmd.Context(), store, cmd.OutOrStdout())
		},
	}
}

// seed is idempotent: users are upserted, the conversation is shared and
// sample messages are only added to an empty conversation.
func seed(ctx context.Context, store storage.Storage, out io.Writer, now time.Time) error {
	for _, u := range []models.User{
		{Code: "A", Name: "Baby"},
		{Code: "B", Name: "Mommy"},
	} {
		if err := store.UpsertUser(ctx, &u); err != nil {
			return err
		}
	}
	fmt.Fprintln(out, "users upserted")

	convo, err := store.GetOrCreateConversation(ctx, "A", "B")
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "conversation ensured %s\n", convo.ID)

	existing, err := store.ListMessages(ctx, convo.ID, nil, 1)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		fmt.Fprintln(out, "messages already present, skipping")
		return nil
	}

	samples := []models.Message{
		{ConversationID: convo.ID, From: "A", To: "B", Type: models.TypeText, Text: "Hey 👋", Timestamp: now.UTC(), Status: models.StatusDelivered},
		{ConversationID: convo.ID, From: "B", To: "A", Type: models.TypeText, Text: "Hello!", Timestamp: now.Add(time.Second).UTC(), Status: models.StatusRead},
	}
	for i := range samples {
		if err := store.CreateMessage(ctx, &samples[i]); err != nil {
			return err
		}
	}
	fmt.Fprintln(out, "sample messages inserted")
	return nil
}

func listUsers(ctx context.Context, store storage.Storage, out io.Writer) error {
	users, err := store.ListUsers(ctx)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Fprintln(out, "no users")
		return nil
	}
	for _, u := range users {
		state := "offline"
		if u.Online {
			state = "online"
		}
		fmt.Fprintf(out, "%-8s %-20s %s\n", u.Code, u.Name, state)
	}
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
