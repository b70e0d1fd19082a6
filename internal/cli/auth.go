package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/legacylink/legacylink/pkg/auth"
	"github.com/legacylink/legacylink/pkg/errors"
	"github.com/legacylink/legacylink/pkg/session"
)

// sessionTTL is used when the config sets no token lifetime.
const sessionTTL = 30 * 24 * time.Hour

func (c *CLI) loginCommand() *cobra.Command {
	var (
		provider   string
		creds      auth.Credentials
		switchUser bool
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with a mock identity provider",
		Long: `Sign in with one of the mock providers (google, apple, facebook, email).
Any well-formed email address is accepted. The session is stored under
~/.config/legacylink/sessions/ and, when auth.secret is configured, carries
a token the HTTP API accepts.

With --switch the new account becomes the active one and earlier accounts
stay signed in; logging in again as the same user replaces their session.`,
		Example: `  legacylink login --email rose@example.com
  legacylink login --provider google --email rose@example.com --name "Rose Hale"
  legacylink login --switch --email tom@example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := c.sessionStore()
			if err != nil {
				return err
			}
			if existing, _ := store.GetSession(ctx); existing != nil && !switchUser {
				printInfo("Already logged in as %s", existing.User.Email)
				printNextStep("Sign out first with", appName+" logout")
				printNextStep("Or switch accounts with", appName+" login --switch --email EMAIL")
				return nil
			}
			if provider == "" {
				provider = c.cfg.Auth.Provider
			}
			sess, err := c.login(ctx, provider, creds)
			if err != nil {
				return err
			}
			if err := store.SaveSession(ctx, sess); err != nil {
				return err
			}
			printSuccess("Logged in as %s", StyleHighlight.Render(sess.User.Email))
			printDetail("session expires %s", sess.ExpiresAt.Local().Format("Jan 2, 2006 15:04"))
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&provider, "provider", "", "google, apple, facebook or email (default from config)")
	flags.StringVar(&creds.Email, "email", "", "email address")
	flags.StringVar(&creds.Name, "name", "", "display name")
	flags.BoolVar(&switchUser, "switch", false, "sign in as another account, keeping the current one")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// login authenticates creds and opens a session. A JWT is attached when a
// signing secret is configured.
func (c *CLI) login(ctx context.Context, provider string, creds auth.Credentials) (*session.Session, error) {
	p, err := auth.NewMockProvider(provider)
	if err != nil {
		return nil, err
	}
	user, err := p.Authenticate(ctx, creds)
	if err != nil {
		return nil, err
	}

	ttl := c.cfg.Auth.TTL.Duration
	if ttl <= 0 {
		ttl = sessionTTL
	}
	sess, err := session.New("", user, time.Now().Add(ttl))
	if err != nil {
		return nil, err
	}
	if c.cfg.Auth.Secret == "" {
		return sess, nil
	}
	tokens, err := auth.NewTokens(c.cfg.Auth.Secret, ttl)
	if err != nil {
		return nil, err
	}
	token, expires, err := tokens.Issue(user, sess.ID)
	if err != nil {
		return nil, err
	}
	sess.Token, sess.ExpiresAt = token, expires
	return sess, nil
}

func (c *CLI) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.sessionStore()
			if err != nil {
				return err
			}
			if err := store.DeleteSession(cmd.Context()); err != nil {
				return fmt.Errorf("delete session: %w", err)
			}
			printSuccess("Logged out")
			return nil
		},
	}
}

func (c *CLI) whoamiCommand() *cobra.Command {
	var showToken bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.sessionStore()
			if err != nil {
				return err
			}
			sess, err := store.GetSession(cmd.Context())
			if err != nil {
				return err
			}
			if sess == nil {
				return errors.New(errors.ErrCodeUnauthorized, "not logged in (run '%s login' first)", appName)
			}
			if sess.Token != "" && c.cfg.Auth.Secret != "" {
				tokens, err := auth.NewTokens(c.cfg.Auth.Secret, c.cfg.Auth.TTL.Duration)
				if err != nil {
					return err
				}
				if _, err := tokens.Verify(sess.Token); err != nil {
					return err
				}
			}

			printKeyValue("Name", sess.User.Name)
			printKeyValue("Email", sess.User.Email)
			printKeyValue("Provider", sess.User.Provider)
			printKeyValue("User ID", sess.User.ID)
			printKeyValue("Logged in", sess.CreatedAt.Local().Format("Jan 2, 2006"))
			printKeyValue("Expires", sess.ExpiresAt.Local().Format("Jan 2, 2006"))
			if showToken && sess.Token != "" {
				printKeyValue("Token", sess.Token)
			}

			others, err := store.Sessions(cmd.Context())
			if err != nil {
				return err
			}
			var emails []string
			for _, o := range others {
				if o.ID != sess.ID && o.User != nil {
					emails = append(emails, o.User.Email)
				}
			}
			if len(emails) > 0 {
				printDetail("also signed in: %s", strings.Join(emails, ", "))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showToken, "token", false, "print the API bearer token")
	return cmd
}

func (c *CLI) sessionStore() (*session.CLIStore, error) {
	dir, err := c.sessionDir()
	if err != nil {
		return nil, err
	}
	return session.NewCLIStore(dir)
}
