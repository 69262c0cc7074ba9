package store

import (
	"context"

	"github.com/cfstout/wizard-scoring-app/internal/wizard"
	"github.com/jmoiron/sqlx"
)

type RoundStore struct {
	db *sqlx.DB
}

const (
	createRoundQuery = `
		INSERT INTO rounds (id, game_id, round_number, cards_per_player, trump_suit, status, created_at)
		VALUES (:id, :game_id, :round_number, :cards_per_player, :trump_suit, :status, :created_at)
	`
	updateRoundQuery = `
		UPDATE rounds SET
		trump_suit = :trump_suit,
		status = :status
		WHERE id = :id
	`
	// Amount-only upsert keeps any tricks/score already recorded, so
	// re-submitting a bid during bidding never wipes a prior correction.
	upsertBidAmountQuery = `
		INSERT INTO bids (id, round_id, player_id, bid_amount)
		VALUES (:id, :round_id, :player_id, :bid_amount)
		ON CONFLICT (round_id, player_id) DO UPDATE SET
		bid_amount = excluded.bid_amount
	`
	upsertBidResultQuery = `
		INSERT INTO bids (id, round_id, player_id, bid_amount, tricks_taken, score)
		VALUES (:id, :round_id, :player_id, :bid_amount, :tricks_taken, :score)
		ON CONFLICT (round_id, player_id) DO UPDATE SET
		bid_amount = excluded.bid_amount,
		tricks_taken = excluded.tricks_taken,
		score = excluded.score
	`
)

func NewRoundStore(db *sqlx.DB) *RoundStore {
	return &RoundStore{db: db}
}

func (s *RoundStore) CreateRound(ctx context.Context, tx *sqlx.Tx, round *wizard.Round) error {
	_, err := tx.NamedExecContext(ctx, createRoundQuery, round)
	return err
}

func (s *RoundStore) GetRound(ctx context.Context, id string) (*wizard.Round, error) {
	var round wizard.Round
	err := s.db.GetContext(ctx, &round, "SELECT * FROM rounds WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return &round, nil
}

func (s *RoundStore) GetRoundTx(ctx context.Context, tx *sqlx.Tx, id string) (*wizard.Round, error) {
	var round wizard.Round
	err := tx.GetContext(ctx, &round, "SELECT * FROM rounds WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return &round, nil
}

func (s *RoundStore) GetRoundsByGame(ctx context.Context, gameID string) ([]wizard.Round, error) {
	var rounds []wizard.Round
	err := s.db.SelectContext(ctx, &rounds,
		"SELECT * FROM rounds WHERE game_id = ? ORDER BY round_number ASC", gameID)
	return rounds, err
}

func (s *RoundStore) UpdateRound(ctx context.Context, round *wizard.Round) error {
	_, err := s.db.NamedExecContext(ctx, updateRoundQuery, round)
	return err
}

func (s *RoundStore) UpdateRoundTx(ctx context.Context, tx *sqlx.Tx, round *wizard.Round) error {
	_, err := tx.NamedExecContext(ctx, updateRoundQuery, round)
	return err
}

func (s *RoundStore) UpsertBidAmount(ctx context.Context, bid *wizard.Bid) error {
	_, err := s.db.NamedExecContext(ctx, upsertBidAmountQuery, bid)
	return err
}

func (s *RoundStore) UpsertBidAmountTx(ctx context.Context, tx *sqlx.Tx, bid *wizard.Bid) error {
	_, err := tx.NamedExecContext(ctx, upsertBidAmountQuery, bid)
	return err
}

func (s *RoundStore) UpsertBidResultTx(ctx context.Context, tx *sqlx.Tx, bid *wizard.Bid) error {
	_, err := tx.NamedExecContext(ctx, upsertBidResultQuery, bid)
	return err
}

func (s *RoundStore) GetBid(ctx context.Context, roundID, playerID string) (*wizard.Bid, error) {
	var bid wizard.Bid
	err := s.db.GetContext(ctx, &bid,
		"SELECT * FROM bids WHERE round_id = ? AND player_id = ?", roundID, playerID)
	if err != nil {
		return nil, err
	}
	return &bid, nil
}

func (s *RoundStore) GetBidsByRound(ctx context.Context, roundID string) ([]wizard.Bid, error) {
	var bids []wizard.Bid
	err := s.db.SelectContext(ctx, &bids,
		"SELECT * FROM bids WHERE round_id = ?", roundID)
	return bids, err
}

// GetBidsByGameTx returns every bid across all of a game's rounds, used for
// the full total-score recompute on round completion.
func (s *RoundStore) GetBidsByGameTx(ctx context.Context, tx *sqlx.Tx, gameID string) ([]wizard.Bid, error) {
	var bids []wizard.Bid
	err := tx.SelectContext(ctx, &bids, `
		SELECT b.* FROM bids b
		JOIN rounds r ON r.id = b.round_id
		WHERE r.game_id = ?`, gameID)
	return bids, err
}

func (s *RoundStore) GetBidsByGame(ctx context.Context, gameID string) ([]wizard.Bid, error) {
	var bids []wizard.Bid
	err := s.db.SelectContext(ctx, &bids, `
		SELECT b.* FROM bids b
		JOIN rounds r ON r.id = b.round_id
		WHERE r.game_id = ?`, gameID)
	return bids, err
}
