package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

func newRoomCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "room",
		Short: "Room management commands",
	}

	cmd.AddCommand(newRoomCreateCmd())
	cmd.AddCommand(newRoomJoinCmd())
	cmd.AddCommand(newRoomGetCmd())
	cmd.AddCommand(newRoomStartCmd())
	cmd.AddCommand(newRoomAdvanceCmd())
	cmd.AddCommand(newRoomBotsCmd())

	return cmd
}

func roomPath(code string, suffix string) string {
	return "/api/v1/rooms/" + url.PathEscape(code) + suffix
}

func newRoomCreateCmd() *cobra.Command {
	var name string
	var rounds int

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new room and join it as host",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{"player_name": name}
			if rounds > 0 {
				req["max_rounds"] = rounds
			}

			var result Membership
			if err := client.Post(cmd.Context(), "/api/v1/rooms", req, &result); err != nil {
				return err
			}
			if err := cfg.SaveToken(result.Token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Your display name (required)")
	cmd.Flags().IntVar(&rounds, "rounds", 0, "Number of rounds (server default if unset)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newRoomJoinCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "join <code>",
		Short: "Join an existing room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"player_name": name}

			var result Membership
			if err := client.Post(cmd.Context(), roomPath(args[0], "/join"), req, &result); err != nil {
				return err
			}
			if err := cfg.SaveToken(result.Token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Your display name (required)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newRoomGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <code>",
		Short: "Show room details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Room
			if err := client.Get(cmd.Context(), roomPath(args[0], ""), &result); err != nil {
				return err
			}
			output(cmd).Print(result)
			return nil
		},
	}
}

func newRoomStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <code>",
		Short: "Start the game (host only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Room
			if err := client.Post(cmd.Context(), roomPath(args[0], "/start"), nil, &result); err != nil {
				return err
			}
			output(cmd).Print(result)
			return nil
		},
	}
}

func newRoomAdvanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "advance <code>",
		Short: "Open the next round (host only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Room
			if err := client.Post(cmd.Context(), roomPath(args[0], "/advance"), nil, &result); err != nil {
				return err
			}
			output(cmd).Print(result)
			return nil
		},
	}
}

func newRoomBotsCmd() *cobra.Command {
	var strategy string
	var count int

	cmd := &cobra.Command{
		Use:   "bots <code>",
		Short: "Add AI players to the room (host only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("count must be at least 1")
			}
			out := output(cmd)
			for range count {
				var result Player
				if err := client.Post(cmd.Context(), roomPath(args[0], "/bots"), map[string]string{"strategy": strategy}, &result); err != nil {
					return err
				}
				out.Print(result)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&strategy, "strategy", "", "Bot strategy (default random)")
	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of bots to add")

	return cmd
}
