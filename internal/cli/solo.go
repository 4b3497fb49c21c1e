package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newSoloCmd() *cobra.Command {
	var name string
	var bots int
	var rounds int

	cmd := &cobra.Command{
		Use:   "solo",
		Short: "Play a game against bots",
		Long: `Create a room, fill it with bots and play every round from the terminal.

Enter a bid amount at each prompt. Bots bid as soon as a round opens, so the
round resolves as soon as your bid is in.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			req := map[string]any{"player_name": name}
			if rounds > 0 {
				req["max_rounds"] = rounds
			}
			var m Membership
			if err := client.Post(ctx, "/api/v1/rooms", req, &m); err != nil {
				return err
			}
			if err := cfg.SaveToken(m.Token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}
			client.SetToken(m.Token)

			code := m.Room.Code
			for range bots {
				if err := client.Post(ctx, roomPath(code, "/bots"), nil, nil); err != nil {
					return err
				}
			}

			var rm Room
			if err := client.Post(ctx, roomPath(code, "/start"), nil, &rm); err != nil {
				return err
			}

			return playSolo(cmd, code, m.Player.ID, rm)
		},
	}

	cmd.Flags().StringVar(&name, "name", "Player", "Your display name")
	cmd.Flags().IntVar(&bots, "bots", 3, "Number of bot opponents")
	cmd.Flags().IntVar(&rounds, "rounds", 0, "Number of rounds (server default if unset)")

	return cmd
}

func playSolo(cmd *cobra.Command, code, playerID string, rm Room) error {
	ctx := cmd.Context()
	out := output(cmd)
	w := cmd.OutOrStdout()
	in := bufio.NewScanner(cmd.InOrStdin())

	for rm.Phase != "game_over" {
		if rm.Phase == "bidding" {
			me := findPlayer(rm.Players, playerID)
			if me != nil && !me.Eliminated {
				out.Print(rm)
				result, err := promptBid(ctx, w, in, code, me.Capital)
				if err != nil {
					return err
				}
				out.Print(result)
				if result.Result != nil && result.Result.GameOver {
					break
				}
			} else {
				// Bots finish the round without us
				if err := client.Get(ctx, roomPath(code, ""), &rm); err != nil {
					return err
				}
				if rm.Phase == "bidding" {
					return fmt.Errorf("round %d did not resolve", rm.CurrentRound)
				}
				continue
			}
		}

		if err := client.Post(ctx, roomPath(code, "/advance"), nil, &rm); err != nil {
			var apiErr *Error
			if errors.As(err, &apiErr) && apiErr.API.Code == "GAME_OVER" {
				break
			}
			return err
		}
	}

	var board Leaderboard
	if err := client.Get(ctx, roomPath(code, "/leaderboard"), &board); err != nil {
		return err
	}
	fmt.Fprintln(w, "Final standings:")
	out.Print(board)
	return nil
}

// promptBid reads amounts until the server accepts one
func promptBid(ctx context.Context, w io.Writer, in *bufio.Scanner, code string, capital int64) (Receipt, error) {
	for {
		fmt.Fprintf(w, "Your bid (capital %d): ", capital)
		if !in.Scan() {
			if err := in.Err(); err != nil {
				return Receipt{}, err
			}
			return Receipt{}, io.ErrUnexpectedEOF
		}

		text := strings.TrimSpace(in.Text())
		if text == "" {
			continue
		}
		amount, err := strconv.ParseFloat(text, 64)
		if err != nil {
			fmt.Fprintln(w, "Enter a number")
			continue
		}

		var receipt Receipt
		err = client.Post(ctx, roomPath(code, "/bids"), map[string]any{"amount": amount}, &receipt)
		var apiErr *Error
		if errors.As(err, &apiErr) && apiErr.API.Code == "INVALID_BID_AMOUNT" {
			fmt.Fprintln(w, apiErr.API.Message)
			continue
		}
		return receipt, err
	}
}

func findPlayer(players []Player, id string) *Player {
	for i := range players {
		if players[i].ID == id {
			return &players[i]
		}
	}
	return nil
}
