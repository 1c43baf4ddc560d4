package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vonheldenundgestalten/tokenlogin/internal/database"
	"github.com/vonheldenundgestalten/tokenlogin/internal/store"
)

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired tokens and sessions",
	RunE:  runPurge,
}

func runPurge(cmd *cobra.Command, args []string) error {
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	tokens, err := store.NewTokenStore(db).DeleteExpired()
	if err != nil {
		return err
	}
	sessions, err := store.NewSessionStore(db).DeleteExpired()
	if err != nil {
		return err
	}

	fmt.Printf("purged %d expired tokens, %d expired sessions\n", tokens, sessions)
	return nil
}
