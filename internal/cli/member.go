package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vonheldenundgestalten/tokenlogin/internal/database"
	"github.com/vonheldenundgestalten/tokenlogin/internal/store"
)

var memberCmd = &cobra.Command{
	Use:   "member",
	Short: "Manage members",
}

var (
	memberAddEmail    string
	memberAddPassword string
	memberAddKind     string
)

var memberAddCmd = &cobra.Command{
	Use:   "add [username]",
	Short: "Create a member",
	Args:  cobra.ExactArgs(1),
	RunE:  runMemberAdd,
}

var memberDisableCmd = &cobra.Command{
	Use:   "disable [username]",
	Short: "Disable a member and drop their sessions",
	Args:  cobra.ExactArgs(1),
	RunE:  runMemberDisable,
}

func init() {
	memberAddCmd.Flags().StringVarP(&memberAddEmail, "email", "e", "", "member email address")
	memberAddCmd.Flags().StringVarP(&memberAddPassword, "password", "p", "", "password (empty means token login only)")
	memberAddCmd.Flags().StringVarP(&memberAddKind, "kind", "k", "", "member kind (default frontend)")

	memberCmd.AddCommand(memberAddCmd)
	memberCmd.AddCommand(memberDisableCmd)
}

func runMemberAdd(cmd *cobra.Command, args []string) error {
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	m, err := store.NewMemberStore(db).Create(args[0], memberAddEmail, memberAddPassword, memberAddKind)
	if err != nil {
		return err
	}

	fmt.Printf("created member %q (id %d)\n", m.Username, m.ID)
	return nil
}

func runMemberDisable(cmd *cobra.Command, args []string) error {
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	members := store.NewMemberStore(db)
	m, err := members.GetByUsername(args[0])
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("no member with username %q", args[0])
	}

	if err := members.SetDisabled(m.ID, true); err != nil {
		return err
	}
	// Live sessions must not outlive the account.
	if err := store.NewSessionStore(db).DeleteByMemberID(m.ID); err != nil {
		return err
	}

	fmt.Printf("disabled member %q\n", m.Username)
	return nil
}
