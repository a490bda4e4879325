package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"study-tracker/backend/pkg/jwt"
)

type tokenResult struct {
	OwnerID     string `json:"owner_id"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

func newTokenCmd(e *env) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a development access token for an owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			if owner == "" {
				owner = uuid.NewString()
			} else if _, err := uuid.Parse(owner); err != nil {
				return fmt.Errorf("invalid --owner: %w", err)
			}

			token, err := jwt.NewManager(&e.cfg.Auth).GenerateAccessToken(owner)
			if err != nil {
				return err
			}
			return writeJSON(cmdOutput{
				Command: "token",
				Result: tokenResult{
					OwnerID:     owner,
					AccessToken: token,
					ExpiresIn:   int64(e.cfg.Auth.AccessTokenTTL.Seconds()),
				},
			})
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Owner UUID (random when empty)")
	return cmd
}
