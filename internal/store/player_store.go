package store

import (
	"context"

	"github.com/cfstout/wizard-scoring-app/internal/wizard"
	"github.com/jmoiron/sqlx"
)

type PlayerStore struct {
	db *sqlx.DB
}

const (
	getPlayerQuery    = "SELECT * FROM players WHERE id = ?"
	listPlayersQuery  = "SELECT * FROM players ORDER BY name ASC"
	createPlayerQuery = `
		INSERT INTO players (id, name, created_at) VALUES
		(:id, :name, :created_at)
	`
	listPlayersByGameQuery = `
		SELECT p.* FROM players p
		JOIN game_players gp ON gp.player_id = p.id
		WHERE gp.game_id = ?
	`
)

func NewPlayerStore(db *sqlx.DB) *PlayerStore {
	return &PlayerStore{db: db}
}

func (s *PlayerStore) CreatePlayer(ctx context.Context, player *wizard.Player) error {
	_, err := s.db.NamedExecContext(ctx, createPlayerQuery, player)
	return err
}

func (s *PlayerStore) GetPlayer(ctx context.Context, id string) (*wizard.Player, error) {
	var player wizard.Player
	err := s.db.GetContext(ctx, &player, getPlayerQuery, id)
	if err != nil {
		return nil, err
	}
	return &player, nil
}

func (s *PlayerStore) ListPlayers(ctx context.Context) ([]wizard.Player, error) {
	var players []wizard.Player
	err := s.db.SelectContext(ctx, &players, listPlayersQuery)
	return players, err
}

func (s *PlayerStore) ListPlayersByGame(ctx context.Context, gameID string) ([]wizard.Player, error) {
	var players []wizard.Player
	err := s.db.SelectContext(ctx, &players, listPlayersByGameQuery, gameID)
	return players, err
}
