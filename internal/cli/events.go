package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func newEventsCmd() *cobra.Command {
	var jsonOutput bool
	var limit int

	cmd := &cobra.Command{
		Use:   "events <code>",
		Short: "Stream live events from a room",
		Long: `Connect to the room's event stream and print events as they arrive.

Events include:
  - player_joined: A player or bot joined the room
  - game_started: The host started the game
  - round_started: A new item is up for bidding
  - bid_placed: A player submitted a bid (amount hidden)
  - round_result: The round resolved
  - game_over: The game finished

Press Ctrl+C to disconnect.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			body, err := client.Stream(ctx, roomPath(args[0], "/events"))
			if err != nil {
				return err
			}
			defer func() { _ = body.Close() }()

			w := cmd.OutOrStdout()
			if !jsonOutput {
				fmt.Fprintf(w, "Connected to room %s\n", args[0])
			}

			seen := 0
			err = readSSE(body, func(evt SSEEvent) bool {
				if evt.Event == "connected" {
					return true
				}
				printEvent(w, evt, jsonOutput)
				seen++
				return limit <= 0 || seen < limit
			})
			if err != nil && ctx.Err() == nil {
				return fmt.Errorf("stream error: %w", err)
			}

			if !jsonOutput {
				fmt.Fprintln(w, "Disconnected")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output events as JSON lines")
	cmd.Flags().IntVar(&limit, "limit", 0, "Disconnect after this many events (0 for no limit)")

	return cmd
}

// SSEEvent represents a parsed SSE event
type SSEEvent struct {
	Time  time.Time `json:"time"`
	Event string    `json:"event"`
	Data  string    `json:"data"`
}

// readSSE parses an event stream, calling fn for each complete event until
// fn returns false or the stream ends
func readSSE(r io.Reader, fn func(SSEEvent) bool) error {
	scanner := bufio.NewScanner(r)
	var currentEvent string
	var dataLines []string

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "event:"):
			currentEvent = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		case line == "":
			if currentEvent != "" {
				evt := SSEEvent{Time: time.Now(), Event: currentEvent, Data: strings.Join(dataLines, "\n")}
				if !fn(evt) {
					return nil
				}
			}
			currentEvent = ""
			dataLines = nil
		}
	}

	return scanner.Err()
}

func printEvent(w io.Writer, evt SSEEvent, jsonOutput bool) {
	if jsonOutput {
		jsonData, _ := json.Marshal(evt)
		fmt.Fprintln(w, string(jsonData))
		return
	}

	timestamp := evt.Time.Format("2006-01-02 15:04:05")
	// Truncate data if it's too long for display
	displayData := evt.Data
	if len(displayData) > 100 {
		displayData = displayData[:100] + "..."
	}
	displayData = strings.ReplaceAll(displayData, "\n", " ")
	fmt.Fprintf(w, "[%s] %s: %s\n", timestamp, evt.Event, displayData)
}
