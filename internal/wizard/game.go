package wizard

import (
	"time"

	"github.com/google/uuid"
)

type GameStatus string

const (
	GameSetup           GameStatus = "SETUP"
	GameSeatArrangement GameStatus = "SEAT_ARRANGEMENT"
	GameInProgress      GameStatus = "IN_PROGRESS"
	GameCompleted       GameStatus = "COMPLETED"
)

// Statuses only ever move forward through this order.
var gameStatusOrder = map[GameStatus]int{
	GameSetup:           0,
	GameSeatArrangement: 1,
	GameInProgress:      2,
	GameCompleted:       3,
}

func (s GameStatus) CanTransitionTo(next GameStatus) bool {
	from, ok := gameStatusOrder[s]
	if !ok {
		return false
	}
	to, ok := gameStatusOrder[next]
	if !ok {
		return false
	}
	return to >= from
}

type Game struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	PlayerCount  int        `db:"player_count" json:"playerCount"`
	TotalRounds  int        `db:"total_rounds" json:"totalRounds"`
	CurrentRound int        `db:"current_round" json:"currentRound"`
	Status       GameStatus `db:"status" json:"status"`
	StartedAt    *time.Time `db:"started_at" json:"startedAt,omitempty"`
	EndedAt      *time.Time `db:"ended_at" json:"endedAt,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
}

// GamePlayer ties a player to a game. TotalScore and Position are derived
// state, recomputed whenever a round completes.
type GamePlayer struct {
	ID           uuid.UUID `db:"id" json:"id"`
	GameID       uuid.UUID `db:"game_id" json:"gameId"`
	PlayerID     uuid.UUID `db:"player_id" json:"playerId"`
	TotalScore   int       `db:"total_score" json:"totalScore"`
	SeatPosition *int      `db:"seat_position" json:"seatPosition,omitempty"`
	Position     *int      `db:"position" json:"position,omitempty"`
}
