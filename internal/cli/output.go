package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Membership:
		o.printMembership(v)
	case Room:
		o.printRoom(v)
	case Player:
		o.printPlayer(v)
	case Receipt:
		o.printReceipt(v)
	case Results:
		o.printResults(v)
	case Leaderboard:
		o.printLeaderboard(v)
	case HealthResult:
		fmt.Fprintf(o.w, "Status: %s\n", v.Status)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Item response type (matches API)
type Item struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Emoji       string `json:"emoji"`
	Price       int64  `json:"price"`
}

// Player response type
type Player struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Capital     int64  `json:"capital"`
	Eliminated  bool   `json:"eliminated"`
	IsHost      bool   `json:"is_host"`
	IsAI        bool   `json:"is_ai,omitempty"`
}

// Room response type
type Room struct {
	ID                string   `json:"id"`
	Code              string   `json:"code"`
	Phase             string   `json:"phase"`
	HostID            string   `json:"host_id"`
	CurrentRound      int      `json:"current_round"`
	MaxRounds         int      `json:"max_rounds"`
	LastResolvedRound int      `json:"last_resolved_round"`
	CurrentItem       *Item    `json:"current_item,omitempty"`
	Players           []Player `json:"players,omitempty"`
}

// Membership is returned by create and join
type Membership struct {
	Room   Room   `json:"room"`
	Player Player `json:"player"`
	Token  string `json:"token"`
}

// BidEntry is one bid in a round result
type BidEntry struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	Amount     int64  `json:"amount"`
}

// RoundResult response type
type RoundResult struct {
	Round      int        `json:"round"`
	Item       Item       `json:"item"`
	WinnerID   string     `json:"winner_id"`
	WinnerName string     `json:"winner_name"`
	WinnerBid  int64      `json:"winner_bid"`
	WinnerGain int64      `json:"winner_gain"`
	Bids       []BidEntry `json:"bids"`
	Eliminated []string   `json:"eliminated"`
	GameOver   bool       `json:"game_over"`
}

// Receipt is returned for an accepted bid
type Receipt struct {
	Round     int          `json:"round"`
	Amount    int64        `json:"amount"`
	AllBidsIn bool         `json:"all_bids_in"`
	Resolved  bool         `json:"resolved"`
	Result    *RoundResult `json:"result,omitempty"`
}

// Results lists resolved rounds
type Results struct {
	Rounds []RoundResult `json:"rounds"`
}

// Leaderboard lists players in standing order
type Leaderboard struct {
	Players []Player `json:"players"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printMembership(m Membership) {
	fmt.Fprintf(o.w, "Joined as %s (%s)\n", m.Player.DisplayName, m.Player.ID)
	o.printRoom(m.Room)
}

func (o *Output) printRoom(r Room) {
	fmt.Fprintf(o.w, "Room: %s\n", r.Code)
	fmt.Fprintf(o.w, "Phase: %s\n", r.Phase)
	if r.CurrentRound > 0 {
		fmt.Fprintf(o.w, "Round: %d/%d\n", r.CurrentRound, r.MaxRounds)
	} else {
		fmt.Fprintf(o.w, "Rounds: %d\n", r.MaxRounds)
	}
	if r.CurrentItem != nil {
		fmt.Fprintf(o.w, "Item: %s\n", formatItem(*r.CurrentItem))
	}
	if len(r.Players) > 0 {
		fmt.Fprintf(o.w, "Players (%d):\n", len(r.Players))
		for _, p := range r.Players {
			fmt.Fprintf(o.w, "  - %s\n", formatPlayer(p))
		}
	}
}

func (o *Output) printPlayer(p Player) {
	fmt.Fprintln(o.w, formatPlayer(p))
}

func (o *Output) printReceipt(r Receipt) {
	fmt.Fprintf(o.w, "Bid %d accepted for round %d\n", r.Amount, r.Round)
	if r.Result != nil {
		o.printRoundResult(*r.Result)
	} else if !r.AllBidsIn {
		fmt.Fprintln(o.w, "Waiting for other players")
	}
}

func (o *Output) printResults(r Results) {
	if len(r.Rounds) == 0 {
		fmt.Fprintln(o.w, "No rounds resolved yet")
		return
	}
	for i, round := range r.Rounds {
		if i > 0 {
			fmt.Fprintln(o.w)
		}
		o.printRoundResult(round)
	}
}

func (o *Output) printRoundResult(r RoundResult) {
	fmt.Fprintf(o.w, "Round %d: %s\n", r.Round, formatItem(r.Item))
	fmt.Fprintf(o.w, "Winner: %s with %d (gain %+d)\n", r.WinnerName, r.WinnerBid, r.WinnerGain)
	for _, b := range r.Bids {
		fmt.Fprintf(o.w, "  %s: %d\n", b.PlayerName, b.Amount)
	}
	if len(r.Eliminated) > 0 {
		fmt.Fprintf(o.w, "Eliminated: %s\n", strings.Join(r.Eliminated, ", "))
	}
	if r.GameOver {
		fmt.Fprintln(o.w, "Game over")
	}
}

func (o *Output) printLeaderboard(l Leaderboard) {
	for i, p := range l.Players {
		fmt.Fprintf(o.w, "%d. %s\n", i+1, formatPlayer(p))
	}
}

func formatItem(item Item) string {
	name := item.Name
	if item.Emoji != "" {
		name = item.Emoji + " " + name
	}
	return fmt.Sprintf("%s (worth %d)", name, item.Price)
}

func formatPlayer(p Player) string {
	var tags []string
	if p.IsHost {
		tags = append(tags, "host")
	}
	if p.IsAI {
		tags = append(tags, "bot")
	}
	if p.Eliminated {
		tags = append(tags, "eliminated")
	}
	s := fmt.Sprintf("%s: %d", p.DisplayName, p.Capital)
	if len(tags) > 0 {
		s += " [" + strings.Join(tags, ", ") + "]"
	}
	return s
}
