package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cfstout/wizard-scoring-app/internal/store"
	"github.com/cfstout/wizard-scoring-app/internal/utils"
	"github.com/cfstout/wizard-scoring-app/internal/wizard"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrInvalidPlayerCount = errors.New("games require between 3 and 6 players")
	ErrSeatsNotAssigned   = errors.New("every seat must be assigned exactly once before the game starts")
	ErrSeatsLocked        = errors.New("seats cannot change once the game is in progress")
	ErrInvalidSeat        = errors.New("seat position is out of range")
	ErrInvalidRoundNumber = errors.New("current round is out of range")
)

type GameService struct {
	db      *sqlx.DB
	games   *store.GameStore
	players *store.PlayerStore
	rounds  *store.RoundStore
}

func NewGameService(db *sqlx.DB, games *store.GameStore, players *store.PlayerStore, rounds *store.RoundStore) *GameService {
	return &GameService{db: db, games: games, players: players, rounds: rounds}
}

type BidData struct {
	wizard.Bid
	Player wizard.Player `json:"player"`
}

// RoundData is a round plus its bids and the derived turn-order values the
// table needs: who deals, who bids first, and how many tricks the bids so far
// leave uncovered. RemainingTricks is a hint only; bids may over- or
// undershoot the cards dealt.
type RoundData struct {
	wizard.Round
	DealerSeat      int       `json:"dealerSeat"`
	FirstBidderSeat int       `json:"firstBidderSeat"`
	RemainingTricks int       `json:"remainingTricks"`
	Bids            []BidData `json:"bids"`
}

func newRoundData(round wizard.Round, playerCount int, bids []BidData) RoundData {
	amounts := make([]int, 0, len(bids))
	for _, b := range bids {
		amounts = append(amounts, b.BidAmount)
	}
	return RoundData{
		Round:           round,
		DealerSeat:      wizard.DealerSeat(round.RoundNumber, playerCount),
		FirstBidderSeat: wizard.FirstBidderSeat(round.RoundNumber, playerCount),
		RemainingTricks: wizard.RemainingTricks(round.CardsPerPlayer, amounts),
		Bids:            bids,
	}
}

type GamePlayerData struct {
	wizard.GamePlayer
	Player wizard.Player `json:"player"`
}

type GameData struct {
	wizard.Game
	Players []GamePlayerData `json:"players"`
	Rounds  []RoundData      `json:"rounds,omitempty"`
}

// CreateGame sets up a game for the given players. The player count fixes the
// total number of rounds for the whole game.
func (s *GameService) CreateGame(ctx context.Context, playerIDs []uuid.UUID) (*GameData, error) {
	if len(playerIDs) < 3 || len(playerIDs) > 6 {
		return nil, ErrInvalidPlayerCount
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	game := &wizard.Game{
		ID:           uuid.New(),
		PlayerCount:  len(playerIDs),
		TotalRounds:  wizard.TotalRounds(len(playerIDs)),
		CurrentRound: 1,
		Status:       wizard.GameSetup,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.games.CreateGame(ctx, tx, game); err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	gamePlayers := make([]wizard.GamePlayer, 0, len(playerIDs))
	for _, playerID := range playerIDs {
		gamePlayers = append(gamePlayers, wizard.GamePlayer{
			ID:       uuid.New(),
			GameID:   game.ID,
			PlayerID: playerID,
		})
	}

	if err := s.games.CreateGamePlayers(ctx, tx, gamePlayers); err != nil {
		return nil, fmt.Errorf("failed to create game players: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return s.GetGameData(ctx, game.ID.String())
}

// GetGameData returns a game with its players (seat, running score, final
// position) and its rounds in order, each round carrying its bids.
func (s *GameService) GetGameData(ctx context.Context, id string) (*GameData, error) {
	game, err := s.games.GetGame(ctx, id)
	if err != nil {
		return nil, err
	}

	players, err := s.playersByID(ctx, id)
	if err != nil {
		return nil, err
	}

	gamePlayers, err := s.games.GetGamePlayers(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get game players: %w", err)
	}

	rounds, err := s.rounds.GetRoundsByGame(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get rounds: %w", err)
	}

	data := &GameData{Game: *game, Players: []GamePlayerData{}, Rounds: []RoundData{}}
	for _, gp := range gamePlayers {
		data.Players = append(data.Players, GamePlayerData{GamePlayer: gp, Player: players[gp.PlayerID]})
	}
	for _, r := range rounds {
		bids, err := s.rounds.GetBidsByRound(ctx, r.ID.String())
		if err != nil {
			return nil, fmt.Errorf("failed to get bids: %w", err)
		}
		bidData := make([]BidData, 0, len(bids))
		for _, b := range bids {
			bidData = append(bidData, BidData{Bid: b, Player: players[b.PlayerID]})
		}
		data.Rounds = append(data.Rounds, newRoundData(r, game.PlayerCount, bidData))
	}

	return data, nil
}

// ListGames returns all games newest first, each with its players but without
// round details.
func (s *GameService) ListGames(ctx context.Context) ([]GameData, error) {
	games, err := s.games.ListGames(ctx)
	if err != nil {
		return nil, err
	}

	list := make([]GameData, 0, len(games))
	for _, g := range games {
		players, err := s.playersByID(ctx, g.ID.String())
		if err != nil {
			return nil, err
		}
		gamePlayers, err := s.games.GetGamePlayers(ctx, g.ID.String())
		if err != nil {
			return nil, fmt.Errorf("failed to get game players: %w", err)
		}
		data := GameData{Game: g, Players: []GamePlayerData{}}
		for _, gp := range gamePlayers {
			data.Players = append(data.Players, GamePlayerData{GamePlayer: gp, Player: players[gp.PlayerID]})
		}
		list = append(list, data)
	}
	return list, nil
}

// UpdateGame patches a game's status and/or current round. Status moves are
// forward-only, and a game cannot enter IN_PROGRESS until its seats form a
// permutation of 1..playerCount.
func (s *GameService) UpdateGame(ctx context.Context, id uuid.UUID, status *wizard.GameStatus, currentRound *int) (*GameData, error) {
	game, err := s.games.GetGame(ctx, id.String())
	if err != nil {
		return nil, err
	}

	if status != nil {
		if !game.Status.CanTransitionTo(*status) {
			return nil, ErrInvalidTransition
		}
		if *status == wizard.GameInProgress && game.Status != wizard.GameInProgress {
			if err := s.checkSeating(ctx, game); err != nil {
				return nil, err
			}
		}
		game.Status = *status
		if *status == wizard.GameInProgress && game.StartedAt == nil {
			game.StartedAt = utils.Ptr(time.Now().UTC())
		}
		if *status == wizard.GameCompleted && game.EndedAt == nil {
			game.EndedAt = utils.Ptr(time.Now().UTC())
		}
	}
	if currentRound != nil {
		if *currentRound < 1 || *currentRound > game.TotalRounds+1 {
			return nil, ErrInvalidRoundNumber
		}
		game.CurrentRound = *currentRound
	}

	if err := s.games.UpdateGame(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to update game: %w", err)
	}
	return s.GetGameData(ctx, id.String())
}

// AssignSeat puts a player into a 1-based rotation slot. Seats are frozen
// once gameplay starts.
func (s *GameService) AssignSeat(ctx context.Context, gameID, playerID uuid.UUID, seatPosition int) error {
	game, err := s.games.GetGame(ctx, gameID.String())
	if err != nil {
		return err
	}
	if game.Status == wizard.GameInProgress || game.Status == wizard.GameCompleted {
		return ErrSeatsLocked
	}
	if seatPosition < 1 || seatPosition > game.PlayerCount {
		return ErrInvalidSeat
	}

	rows, err := s.games.UpdateSeatPosition(ctx, gameID.String(), playerID.String(), seatPosition)
	if err != nil {
		return fmt.Errorf("failed to update seat: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// checkSeating verifies the seat positions form a permutation of
// 1..playerCount.
func (s *GameService) checkSeating(ctx context.Context, game *wizard.Game) error {
	gamePlayers, err := s.games.GetGamePlayers(ctx, game.ID.String())
	if err != nil {
		return fmt.Errorf("failed to get game players: %w", err)
	}

	seen := make(map[int]bool)
	for _, gp := range gamePlayers {
		if gp.SeatPosition == nil {
			return ErrSeatsNotAssigned
		}
		seat := *gp.SeatPosition
		if seat < 1 || seat > game.PlayerCount || seen[seat] {
			return ErrSeatsNotAssigned
		}
		seen[seat] = true
	}
	if len(seen) != game.PlayerCount {
		return ErrSeatsNotAssigned
	}
	return nil
}

func (s *GameService) playersByID(ctx context.Context, gameID string) (map[uuid.UUID]wizard.Player, error) {
	players, err := s.players.ListPlayersByGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get players: %w", err)
	}
	m := make(map[uuid.UUID]wizard.Player, len(players))
	for _, p := range players {
		m[p.ID] = p
	}
	return m, nil
}
