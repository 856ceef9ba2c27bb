package main

import (
	"context"

	"github.com/rdeepak-711/spotify-playlist-app/internal/shared"
	"github.com/urfave/cli/v3"
)

type balanceReport struct {
	UserID  string `json:"user_id"`
	Credits int    `json:"credits"`
}

// CreditsShow prints a user's credit balance.
func (r *Runner) CreditsShow(ctx context.Context, cmd *cli.Command) error {
	userID := cmd.String("user")

	ledger, err := r.ledger(ctx, false)
	if err != nil {
		return err
	}
	balance, err := ledger.Balance(ctx, userID)
	if err != nil {
		return err
	}

	return r.emit(shared.OK("balance", balanceReport{UserID: userID, Credits: balance}), func() error {
		return r.writePlain("%s has %d credits\n", userID, balance)
	})
}

// CreditsGrant tops up a user's balance.
func (r *Runner) CreditsGrant(ctx context.Context, cmd *cli.Command) error {
	userID := cmd.String("user")
	amount := cmd.Int("amount")

	ledger, err := r.ledger(ctx, false)
	if err != nil {
		return err
	}
	balance, err := ledger.Grant(ctx, userID, amount)
	if err != nil {
		return err
	}

	return r.emit(shared.OK("credits granted", balanceReport{UserID: userID, Credits: balance}), func() error {
		return r.writePlain("✓ Granted %d credits to %s (balance %d)\n", amount, userID, balance)
	})
}
