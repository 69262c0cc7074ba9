package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cfstout/wizard-scoring-app/internal/store"
	"github.com/cfstout/wizard-scoring-app/internal/utils"
	"github.com/cfstout/wizard-scoring-app/internal/wizard"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrCardsRoundMismatch = errors.New("cards per player must equal the round number")
	ErrInvalidTransition  = errors.New("status cannot move backwards")
)

type RoundService struct {
	db      *sqlx.DB
	rounds  *store.RoundStore
	games   *store.GameStore
	players *store.PlayerStore
}

func NewRoundService(db *sqlx.DB, rounds *store.RoundStore, games *store.GameStore, players *store.PlayerStore) *RoundService {
	return &RoundService{db: db, rounds: rounds, games: games, players: players}
}

// CreateRound opens roundNumber for the game in the BIDDING state. Creating
// round 1 also moves the game to IN_PROGRESS and stamps its start time.
func (s *RoundService) CreateRound(ctx context.Context, gameID uuid.UUID, roundNumber, cardsPerPlayer int, trumpSuit *string) (*wizard.Round, error) {
	if cardsPerPlayer != roundNumber {
		return nil, ErrCardsRoundMismatch
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	game, err := s.games.GetGameTx(ctx, tx, gameID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	round := &wizard.Round{
		ID:             uuid.New(),
		GameID:         gameID,
		RoundNumber:    roundNumber,
		CardsPerPlayer: cardsPerPlayer,
		TrumpSuit:      trumpSuit,
		Status:         wizard.RoundBidding,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.rounds.CreateRound(ctx, tx, round); err != nil {
		return nil, fmt.Errorf("failed to create round: %w", err)
	}

	if roundNumber == 1 {
		game.Status = wizard.GameInProgress
		if game.StartedAt == nil {
			game.StartedAt = utils.Ptr(time.Now().UTC())
		}
		if err := s.games.UpdateGameTx(ctx, tx, game); err != nil {
			return nil, fmt.Errorf("failed to start game: %w", err)
		}
	}

	return round, tx.Commit()
}

// SubmitBids upserts each player's bid amount, fixes the trump suit if one was
// chosen, and moves the round into the PLAYING state.
func (s *RoundService) SubmitBids(ctx context.Context, roundID uuid.UUID, bids map[uuid.UUID]int, trumpSuit *string) (*wizard.Round, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	round, err := s.rounds.GetRoundTx(ctx, tx, roundID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get round: %w", err)
	}

	for playerID, amount := range bids {
		bid := &wizard.Bid{
			ID:        uuid.New(),
			RoundID:   roundID,
			PlayerID:  playerID,
			BidAmount: amount,
		}
		if err := s.rounds.UpsertBidAmountTx(ctx, tx, bid); err != nil {
			return nil, fmt.Errorf("failed to upsert bid: %w", err)
		}
	}

	if round.TrumpSuit == nil && trumpSuit != nil {
		round.TrumpSuit = trumpSuit
	}
	if round.Status.CanTransitionTo(wizard.RoundPlaying) {
		round.Status = wizard.RoundPlaying
	}

	if err := s.rounds.UpdateRoundTx(ctx, tx, round); err != nil {
		return nil, fmt.Errorf("failed to update round: %w", err)
	}

	return round, tx.Commit()
}

// UpsertBid records a single player's bid amount, overwriting any earlier bid
// for the same round.
func (s *RoundService) UpsertBid(ctx context.Context, roundID, playerID uuid.UUID, amount int) (*wizard.Bid, error) {
	if _, err := s.rounds.GetRound(ctx, roundID.String()); err != nil {
		return nil, fmt.Errorf("failed to get round: %w", err)
	}

	bid := &wizard.Bid{
		ID:        uuid.New(),
		RoundID:   roundID,
		PlayerID:  playerID,
		BidAmount: amount,
	}
	if err := s.rounds.UpsertBidAmount(ctx, bid); err != nil {
		return nil, fmt.Errorf("failed to upsert bid: %w", err)
	}

	return s.rounds.GetBid(ctx, roundID.String(), playerID.String())
}

func (s *RoundService) GetRound(ctx context.Context, id string) (*wizard.Round, error) {
	return s.rounds.GetRound(ctx, id)
}

// GetRoundData loads a round with its bids, each bid carrying its player.
func (s *RoundService) GetRoundData(ctx context.Context, id string) (*RoundData, error) {
	round, err := s.rounds.GetRound(ctx, id)
	if err != nil {
		return nil, err
	}

	bids, err := s.rounds.GetBidsByRound(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get bids: %w", err)
	}

	players, err := s.players.ListPlayersByGame(ctx, round.GameID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get players: %w", err)
	}
	playerMap := make(map[uuid.UUID]wizard.Player)
	for _, p := range players {
		playerMap[p.ID] = p
	}

	bidData := make([]BidData, 0, len(bids))
	for _, b := range bids {
		bidData = append(bidData, BidData{Bid: b, Player: playerMap[b.PlayerID]})
	}
	data := newRoundData(*round, len(players), bidData)
	return &data, nil
}

// UpdateRound patches a round's status and trump suit. Transitions are
// forward-only and the trump suit is fixed once set.
func (s *RoundService) UpdateRound(ctx context.Context, roundID uuid.UUID, status *wizard.RoundStatus, trumpSuit *string) (*wizard.Round, error) {
	round, err := s.rounds.GetRound(ctx, roundID.String())
	if err != nil {
		return nil, err
	}

	if status != nil {
		if !round.Status.CanTransitionTo(*status) {
			return nil, ErrInvalidTransition
		}
		round.Status = *status
	}
	if trumpSuit != nil && round.TrumpSuit == nil {
		round.TrumpSuit = trumpSuit
	}

	if err := s.rounds.UpdateRound(ctx, round); err != nil {
		return nil, fmt.Errorf("failed to update round: %w", err)
	}
	return round, nil
}

// CompleteRound scores every bid, marks the round COMPLETED, recomputes all
// running totals for the game, and either finishes the game or advances it to
// the next round. The whole sequence is one transaction so readers never see
// scored bids next to stale standings.
//
// Calling it again for an already-completed round applies corrections: the
// upserts overwrite the stored figures and the recompute re-derives totals
// (and final positions, on the last round) from scratch.
//
// Callers must have verified that the tricks taken add up to the cards dealt.
func (s *RoundService) CompleteRound(ctx context.Context, roundID uuid.UUID, bids map[uuid.UUID]int, tricksTaken map[uuid.UUID]int) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	round, err := s.rounds.GetRoundTx(ctx, tx, roundID.String())
	if err != nil {
		return fmt.Errorf("failed to get round: %w", err)
	}
	game, err := s.games.GetGameTx(ctx, tx, round.GameID.String())
	if err != nil {
		return fmt.Errorf("failed to get game: %w", err)
	}

	for playerID, amount := range bids {
		tricks := tricksTaken[playerID]
		bid := &wizard.Bid{
			ID:          uuid.New(),
			RoundID:     roundID,
			PlayerID:    playerID,
			BidAmount:   amount,
			TricksTaken: utils.Ptr(tricks),
			Score:       utils.Ptr(wizard.Score(amount, tricks)),
		}
		if err := s.rounds.UpsertBidResultTx(ctx, tx, bid); err != nil {
			return fmt.Errorf("failed to upsert bid: %w", err)
		}
	}

	round.Status = wizard.RoundCompleted
	if err := s.rounds.UpdateRoundTx(ctx, tx, round); err != nil {
		return fmt.Errorf("failed to update round: %w", err)
	}

	gamePlayers, err := s.recomputeStandingsTx(ctx, tx, game.ID)
	if err != nil {
		return err
	}

	if round.RoundNumber >= game.TotalRounds {
		if err := s.finalizeGameTx(ctx, tx, game, gamePlayers); err != nil {
			return err
		}
	} else {
		game.CurrentRound = round.RoundNumber + 1
		if err := s.games.UpdateGameTx(ctx, tx, game); err != nil {
			return fmt.Errorf("failed to advance game: %w", err)
		}
	}

	return tx.Commit()
}

// recomputeStandingsTx re-derives every participant's total score from all of
// the game's stored bids. A full recompute keeps totals correct even when an
// earlier round was just corrected out of order.
func (s *RoundService) recomputeStandingsTx(ctx context.Context, tx *sqlx.Tx, gameID uuid.UUID) ([]wizard.GamePlayer, error) {
	allBids, err := s.rounds.GetBidsByGameTx(ctx, tx, gameID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get game bids: %w", err)
	}

	playerScores := make(map[uuid.UUID]int)
	for _, b := range allBids {
		if b.Score != nil {
			playerScores[b.PlayerID] += *b.Score
		}
	}

	gamePlayers, err := s.games.GetGamePlayersTx(ctx, tx, gameID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get game players: %w", err)
	}

	for i := range gamePlayers {
		gamePlayers[i].TotalScore = playerScores[gamePlayers[i].PlayerID]
		if err := s.games.UpdateTotalScoreTx(ctx, tx, gamePlayers[i].ID.String(), gamePlayers[i].TotalScore); err != nil {
			return nil, fmt.Errorf("failed to update total score: %w", err)
		}
	}
	return gamePlayers, nil
}

// finalizeGameTx assigns 1-based final positions by total score descending,
// breaking ties on seat position so the ranking is deterministic, then marks
// the game COMPLETED.
func (s *RoundService) finalizeGameTx(ctx context.Context, tx *sqlx.Tx, game *wizard.Game, gamePlayers []wizard.GamePlayer) error {
	sort.SliceStable(gamePlayers, func(i, j int) bool {
		if gamePlayers[i].TotalScore != gamePlayers[j].TotalScore {
			return gamePlayers[i].TotalScore > gamePlayers[j].TotalScore
		}
		return utils.OrZero(gamePlayers[i].SeatPosition) < utils.OrZero(gamePlayers[j].SeatPosition)
	})

	for i := range gamePlayers {
		if err := s.games.UpdatePositionTx(ctx, tx, gamePlayers[i].ID.String(), i+1); err != nil {
			return fmt.Errorf("failed to update position: %w", err)
		}
	}

	game.Status = wizard.GameCompleted
	if game.EndedAt == nil {
		game.EndedAt = utils.Ptr(time.Now().UTC())
	}
	if err := s.games.UpdateGameTx(ctx, tx, game); err != nil {
		return fmt.Errorf("failed to complete game: %w", err)
	}
	return nil
}
