package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vonheldenundgestalten/tokenlogin/internal/database"
	"github.com/vonheldenundgestalten/tokenlogin/internal/store"
)

var (
	issueUsername string
	issueJumpTo   string
	issueTTL      time.Duration
)

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Mint a login token for a member and print the login URL",
	Long: `Mint a single-use login token. Delivery is up to the caller: feed the
printed URL into whatever sends the email.`,
	RunE: runIssue,
}

func init() {
	issueCmd.Flags().StringVarP(&issueUsername, "username", "u", "", "member username (required)")
	issueCmd.Flags().StringVarP(&issueJumpTo, "jump-to", "j", "", "post-login redirect target")
	issueCmd.Flags().DurationVarP(&issueTTL, "ttl", "t", 0, "token lifetime (default from config)")
	issueCmd.MarkFlagRequired("username")
}

func runIssue(cmd *cobra.Command, args []string) error {
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	members := store.NewMemberStore(db)
	m, err := members.GetByUsername(issueUsername)
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("no member with username %q", issueUsername)
	}

	ttl := issueTTL
	if ttl == 0 {
		ttl = cfg.TokenTTL()
	}

	tok, err := store.NewTokenStore(db).Create(m.ID, issueJumpTo, ttl)
	if err != nil {
		return err
	}

	logger.Info("login token issued", "username", m.Username, "expires_at", tok.ExpiresAt)
	fmt.Printf("%s/login/%s\n", cfg.BaseURL, tok.Token)
	return nil
}
