package cli

import (
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
)

// newTokenCmd mints a local session cookie for development and testing
// against a non-production broker. The broker never verifies signatures
// itself, so any shared secret works for local runs.
func newTokenCmd() *cobra.Command {
	var (
		user   string
		secret string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development session cookie for a user",
		RunE: func(_ *cobra.Command, _ []string) error {
			if user == "" {
				return fmt.Errorf("--user is required")
			}

			now := time.Now()
			claims := jwt.MapClaims{
				"logged_in_username": user,
				"iat":                now.Unix(),
				"exp":                now.Add(ttl).Unix(),
			}
			token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
			if err != nil {
				return err
			}

			fmt.Printf("amazon_enterprise_access=%s; session=dev-session\n", url.QueryEscape(token))
			return nil
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "username to embed in the token")
	cmd.Flags().StringVar(&secret, "secret", "dev-secret", "HS256 signing secret")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
