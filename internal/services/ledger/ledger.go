// Package ledger computes capital transfers for one resolved round. It has
// no dependencies and performs no I/O.
package ledger

import "github.com/mcoot/bidwars/internal/model"

// Stake is one player's bid going into a round together with the player's
// state before the round
type Stake struct {
	PlayerID   model.PlayerID
	Capital    int64
	Eliminated bool
	Amount     int64
}

// Entry is the effect of a round on one player
type Entry struct {
	PlayerID        model.PlayerID
	Delta           int64
	Capital         int64
	Eliminated      bool
	NewlyEliminated bool
}

// Settlement is the outcome of applying a round's bids
type Settlement struct {
	// Winner indexes Entries; -1 when there were no stakes
	Winner  int
	Entries []Entry
}

// WinnerEntry returns the winner's entry, if any
func (s Settlement) WinnerEntry() (Entry, bool) {
	if s.Winner < 0 || s.Winner >= len(s.Entries) {
		return Entry{}, false
	}
	return s.Entries[s.Winner], true
}

// Gain returns what the winner of an item at price gains by paying bid.
// Negative when the winner overpaid.
func Gain(price, bid int64) int64 {
	return price - bid
}

// Settle applies one round. The highest amount wins; on a tie the stake that
// appears first wins. The winner's delta is price - bid and every other
// bidder loses their bid. Entries are returned in stake order.
func Settle(price int64, stakes []Stake) Settlement {
	settlement := Settlement{Winner: -1, Entries: make([]Entry, len(stakes))}

	for i, st := range stakes {
		if settlement.Winner < 0 || st.Amount > stakes[settlement.Winner].Amount {
			settlement.Winner = i
		}
	}

	for i, st := range stakes {
		delta := -st.Amount
		if i == settlement.Winner {
			delta = Gain(price, st.Amount)
		}
		capital := st.Capital + delta
		eliminated := st.Eliminated || capital <= 0
		settlement.Entries[i] = Entry{
			PlayerID:        st.PlayerID,
			Delta:           delta,
			Capital:         capital,
			Eliminated:      eliminated,
			NewlyEliminated: eliminated && !st.Eliminated,
		}
	}

	return settlement
}
