package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/middleware"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token <feeder>",
		Short: "Mint an indexer API token",
		Long: "Signs a token for the indexer API with INDEXER_JWT_SECRET. The feeder name " +
			"shows up as the principal in the search service logs.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ttl, _ := cmd.Flags().GetDuration("ttl")
			secret := os.Getenv("INDEXER_JWT_SECRET")
			if secret == "" {
				return errors.New("INDEXER_JWT_SECRET is not set")
			}
			token, err := middleware.IssueIndexerToken(secret, args[0], ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
	return cmd
}
