package store

import (
	"context"

	"github.com/cfstout/wizard-scoring-app/internal/wizard"
	"github.com/jmoiron/sqlx"
)

type GameStore struct {
	db *sqlx.DB
}

func NewGameStore(db *sqlx.DB) *GameStore {
	return &GameStore{db: db}
}

func (s *GameStore) CreateGame(ctx context.Context, tx *sqlx.Tx, game *wizard.Game) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO games (id, player_count, total_rounds, current_round, status, created_at)
		VALUES (:id, :player_count, :total_rounds, :current_round, :status, :created_at)`, game)
	return err
}

func (s *GameStore) CreateGamePlayers(ctx context.Context, tx *sqlx.Tx, gamePlayers []wizard.GamePlayer) error {
	if len(gamePlayers) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, `INSERT INTO game_players (id, game_id, player_id, total_score)
		VALUES (:id, :game_id, :player_id, :total_score)`, gamePlayers)
	return err
}

func (s *GameStore) GetGame(ctx context.Context, id string) (*wizard.Game, error) {
	var game wizard.Game
	err := s.db.GetContext(ctx, &game, "SELECT * FROM games WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return &game, nil
}

func (s *GameStore) GetGameTx(ctx context.Context, tx *sqlx.Tx, id string) (*wizard.Game, error) {
	var game wizard.Game
	err := tx.GetContext(ctx, &game, "SELECT * FROM games WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return &game, nil
}

func (s *GameStore) ListGames(ctx context.Context) ([]wizard.Game, error) {
	var games []wizard.Game
	err := s.db.SelectContext(ctx, &games, "SELECT * FROM games ORDER BY created_at DESC")
	return games, err
}

func (s *GameStore) UpdateGame(ctx context.Context, game *wizard.Game) error {
	_, err := s.db.NamedExecContext(ctx, `UPDATE games SET
		current_round = :current_round,
		status = :status,
		started_at = :started_at,
		ended_at = :ended_at
		WHERE id = :id`, game)
	return err
}

func (s *GameStore) UpdateGameTx(ctx context.Context, tx *sqlx.Tx, game *wizard.Game) error {
	_, err := tx.NamedExecContext(ctx, `UPDATE games SET
		current_round = :current_round,
		status = :status,
		started_at = :started_at,
		ended_at = :ended_at
		WHERE id = :id`, game)
	return err
}

// GetGamePlayers returns a game's participants ordered by seat, unseated
// players last.
func (s *GameStore) GetGamePlayers(ctx context.Context, gameID string) ([]wizard.GamePlayer, error) {
	var gamePlayers []wizard.GamePlayer
	err := s.db.SelectContext(ctx, &gamePlayers,
		"SELECT * FROM game_players WHERE game_id = ? ORDER BY seat_position IS NULL, seat_position ASC", gameID)
	return gamePlayers, err
}

func (s *GameStore) GetGamePlayersTx(ctx context.Context, tx *sqlx.Tx, gameID string) ([]wizard.GamePlayer, error) {
	var gamePlayers []wizard.GamePlayer
	err := tx.SelectContext(ctx, &gamePlayers,
		"SELECT * FROM game_players WHERE game_id = ? ORDER BY seat_position IS NULL, seat_position ASC", gameID)
	return gamePlayers, err
}

// UpdateSeatPosition reports how many rows changed so callers can 404 on a
// player that is not part of the game.
func (s *GameStore) UpdateSeatPosition(ctx context.Context, gameID, playerID string, seatPosition int) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE game_players SET seat_position = ? WHERE game_id = ? AND player_id = ?",
		seatPosition, gameID, playerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *GameStore) UpdateTotalScoreTx(ctx context.Context, tx *sqlx.Tx, gamePlayerID string, totalScore int) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE game_players SET total_score = ? WHERE id = ?", totalScore, gamePlayerID)
	return err
}

func (s *GameStore) UpdatePositionTx(ctx context.Context, tx *sqlx.Tx, gamePlayerID string, position int) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE game_players SET position = ? WHERE id = ?", position, gamePlayerID)
	return err
}

// GetCompletedParticipations returns every game_player row belonging to a
// completed game, for the player statistics view.
func (s *GameStore) GetCompletedParticipations(ctx context.Context) ([]wizard.GamePlayer, error) {
	var gamePlayers []wizard.GamePlayer
	err := s.db.SelectContext(ctx, &gamePlayers, `
		SELECT gp.* FROM game_players gp
		JOIN games g ON g.id = gp.game_id
		WHERE g.status = ?`, wizard.GameCompleted)
	return gamePlayers, err
}
