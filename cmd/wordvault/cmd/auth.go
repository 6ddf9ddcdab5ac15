package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wordvault/wordvault/internal/engine"
	"github.com/wordvault/wordvault/internal/remote"
)

var authPassword string

var registerCmd = &cobra.Command{
	Use:   "register <email>",
	Short: "Create a sync account and sign in",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := authClient()
		if err != nil {
			return err
		}
		password, err := readPassword(cmd)
		if err != nil {
			return err
		}
		return withEngine(func(ctx context.Context, eng *engine.Engine) error {
			pair, err := client.Register(ctx, args[0], password)
			if err != nil {
				return err
			}
			return establishSession(ctx, eng, args[0], pair)
		})
	},
}

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Sign in to the sync account",
	Long: `Sign in and schedule the first sync. The password is read from the
--password flag or, when absent, from standard input.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := authClient()
		if err != nil {
			return err
		}
		password, err := readPassword(cmd)
		if err != nil {
			return err
		}
		return withEngine(func(ctx context.Context, eng *engine.Engine) error {
			pair, err := client.Login(ctx, args[0], password)
			if err != nil {
				return err
			}
			return establishSession(ctx, eng, args[0], pair)
		})
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Renew the session tokens",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := authClient()
		if err != nil {
			return err
		}
		return withEngine(func(ctx context.Context, eng *engine.Engine) error {
			session := eng.Session()
			if session == nil {
				return fmt.Errorf("not signed in")
			}
			if session.RefreshToken == "" {
				return fmt.Errorf("session has no refresh token, log in again")
			}
			pair, err := client.Refresh(ctx, session.RefreshToken)
			if err != nil {
				return err
			}
			return establishSession(ctx, eng, session.Email, pair)
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out of the sync account",
	Long: `Sign out. Local learning data stays on the device; only the session
and outbound sync stop.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, eng *engine.Engine) error {
			if err := eng.ClearSession(ctx); err != nil {
				return err
			}
			fmt.Println("signed out")
			return nil
		})
	},
}

func authClient() (*remote.AuthClient, error) {
	if cfg.Sync.BaseURL == "" {
		return nil, fmt.Errorf("cloud sync is not configured, set sync.base_url first")
	}
	return remote.NewAuthClient(cfg.Sync.BaseURL, cfg.Sync.Timeout, log), nil
}

// readPassword takes the --password flag when given, otherwise reads a
// line from stdin. The prompt goes to stderr so piped output stays
// clean.
func readPassword(cmd *cobra.Command) (string, error) {
	if authPassword != "" {
		return authPassword, nil
	}
	fmt.Fprint(os.Stderr, "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func establishSession(ctx context.Context, eng *engine.Engine, email string, pair *remote.TokenPair) error {
	session, err := eng.SetSession(ctx, email, pair.AccessToken, pair.RefreshToken)
	if err != nil {
		return err
	}
	fmt.Printf("signed in as %s\n", session.Email)
	if !session.ExpiresAt.IsZero() {
		fmt.Printf("token valid until %s\n", session.ExpiresAt.Local().Format(time.RFC1123))
	}
	return nil
}

func init() {
	registerCmd.Flags().StringVar(&authPassword, "password", "", "account password (prompted when omitted)")
	loginCmd.Flags().StringVar(&authPassword, "password", "", "account password (prompted when omitted)")
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(logoutCmd)
}
