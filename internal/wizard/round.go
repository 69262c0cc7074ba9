package wizard

import (
	"time"

	"github.com/google/uuid"
)

type RoundStatus string

const (
	RoundBidding   RoundStatus = "BIDDING"
	RoundPlaying   RoundStatus = "PLAYING"
	RoundCompleted RoundStatus = "COMPLETED"
)

var roundStatusOrder = map[RoundStatus]int{
	RoundBidding:   0,
	RoundPlaying:   1,
	RoundCompleted: 2,
}

func (s RoundStatus) CanTransitionTo(next RoundStatus) bool {
	from, ok := roundStatusOrder[s]
	if !ok {
		return false
	}
	to, ok := roundStatusOrder[next]
	if !ok {
		return false
	}
	return to >= from
}

// Round N deals N cards, so CardsPerPlayer always equals RoundNumber.
type Round struct {
	ID             uuid.UUID   `db:"id" json:"id"`
	GameID         uuid.UUID   `db:"game_id" json:"gameId"`
	RoundNumber    int         `db:"round_number" json:"roundNumber"`
	CardsPerPlayer int         `db:"cards_per_player" json:"cardsPerPlayer"`
	TrumpSuit      *string     `db:"trump_suit" json:"trumpSuit,omitempty"`
	Status         RoundStatus `db:"status" json:"status"`
	CreatedAt      time.Time   `db:"created_at" json:"createdAt"`
}

// Bid holds one player's prediction for a round. TricksTaken and Score stay
// nil until the round completes.
type Bid struct {
	ID          uuid.UUID `db:"id" json:"id"`
	RoundID     uuid.UUID `db:"round_id" json:"roundId"`
	PlayerID    uuid.UUID `db:"player_id" json:"playerId"`
	BidAmount   int       `db:"bid_amount" json:"bidAmount"`
	TricksTaken *int      `db:"tricks_taken" json:"tricksTaken,omitempty"`
	Score       *int      `db:"score" json:"score,omitempty"`
}
