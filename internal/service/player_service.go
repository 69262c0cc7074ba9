package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cfstout/wizard-scoring-app/internal/store"
	"github.com/cfstout/wizard-scoring-app/internal/wizard"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrEmptyPlayerName = errors.New("player name must not be empty")

type PlayerService struct {
	db      *sqlx.DB
	players *store.PlayerStore
	games   *store.GameStore
}

func NewPlayerService(db *sqlx.DB, players *store.PlayerStore, games *store.GameStore) *PlayerService {
	return &PlayerService{db: db, players: players, games: games}
}

func (s *PlayerService) CreatePlayer(ctx context.Context, name string) (*wizard.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyPlayerName
	}

	player := &wizard.Player{
		ID:        uuid.New(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.players.CreatePlayer(ctx, player); err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}
	return player, nil
}

func (s *PlayerService) ListPlayers(ctx context.Context) ([]wizard.Player, error) {
	return s.players.ListPlayers(ctx)
}

type PlayerStats struct {
	TotalGames   int     `json:"totalGames"`
	Wins         int     `json:"wins"`
	WinRate      float64 `json:"winRate"`
	AverageScore float64 `json:"averageScore"`
}

type PlayerWithStats struct {
	wizard.Player
	Stats PlayerStats `json:"stats"`
}

// GetPlayerStats aggregates each player's record across completed games:
// games played, wins (finished first), win rate and average score.
func (s *PlayerService) GetPlayerStats(ctx context.Context) ([]PlayerWithStats, error) {
	players, err := s.players.ListPlayers(ctx)
	if err != nil {
		return nil, err
	}

	participations, err := s.games.GetCompletedParticipations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get participations: %w", err)
	}

	byPlayer := make(map[uuid.UUID][]wizard.GamePlayer)
	for _, gp := range participations {
		byPlayer[gp.PlayerID] = append(byPlayer[gp.PlayerID], gp)
	}

	stats := make([]PlayerWithStats, 0, len(players))
	for _, p := range players {
		games := byPlayer[p.ID]

		wins := 0
		scoreSum := 0
		for _, gp := range games {
			if gp.Position != nil && *gp.Position == 1 {
				wins++
			}
			scoreSum += gp.TotalScore
		}

		var winRate, averageScore float64
		if len(games) > 0 {
			winRate = float64(wins) / float64(len(games)) * 100
			averageScore = float64(scoreSum) / float64(len(games))
		}

		stats = append(stats, PlayerWithStats{
			Player: p,
			Stats: PlayerStats{
				TotalGames:   len(games),
				Wins:         wins,
				WinRate:      round2(winRate),
				AverageScore: round2(averageScore),
			},
		})
	}
	return stats, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
