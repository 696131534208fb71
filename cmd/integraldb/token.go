package main

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	appMiddleware "github.com/markdave123-py/integraldb/internal/api/middlewares"
	"github.com/markdave123-py/integraldb/internal/config"
	"github.com/markdave123-py/integraldb/internal/core/sources/google"
)

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var code string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Authorize Gmail and Drive read access and store the OAuth token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := opts.logger()
			cfg := config.LoadConfig()

			oc, err := google.LoadOAuthConfig(cfg.GoogleCredentialsFile)
			if err != nil {
				return err
			}
			if code == "" {
				url := oc.AuthCodeURL("integraldb", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
				fmt.Fprintf(cmd.OutOrStdout(), "Open this URL, approve access, then paste the code:\n\n%s\n\ncode: ", url)
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read code: %w", err)
				}
				code = strings.TrimSpace(line)
			}

			tok, err := oc.Exchange(cmd.Context(), code)
			if err != nil {
				return fmt.Errorf("exchange code: %w", err)
			}
			if err := google.SaveToken(cfg.GoogleTokenFile, tok); err != nil {
				return fmt.Errorf("save token: %w", err)
			}
			logger.Info("token saved", "path", cfg.GoogleTokenFile)
			return nil
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "authorization code, skips the prompt")
	return cmd
}

func newJWTCmd(opts *rootOptions) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "jwt",
		Short: "Issue a bearer token for POST /api/sync",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = opts.logger()
			tok, err := appMiddleware.IssueToken(config.LoadConfig().JWTSecret, subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "operator", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
