package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newBidCmd() *cobra.Command {
	var round int

	cmd := &cobra.Command{
		Use:   "bid <code> <amount>",
		Short: "Place a sealed bid on the current item",
		Long: `Place a sealed bid on the current round's item.

Fractional amounts are floored and amounts above your capital are capped at
your capital. Pass --round to reject the bid if the room has moved on.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid amount: %w", err)
			}

			req := map[string]any{"amount": amount}
			if round > 0 {
				req["round"] = round
			}

			var result Receipt
			if err := client.Post(cmd.Context(), roomPath(args[0], "/bids"), req, &result); err != nil {
				return err
			}
			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&round, "round", 0, "Round the bid is meant for (default current)")

	return cmd
}

func newResultsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "results <code>",
		Short: "Show resolved round results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Results
			if err := client.Get(cmd.Context(), roomPath(args[0], "/results"), &result); err != nil {
				return err
			}
			output(cmd).Print(result)
			return nil
		},
	}
}

func newLeaderboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leaderboard <code>",
		Short: "Show players ranked by capital",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Leaderboard
			if err := client.Get(cmd.Context(), roomPath(args[0], "/leaderboard"), &result); err != nil {
				return err
			}
			output(cmd).Print(result)
			return nil
		},
	}
}
