package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cfstout/wizard-scoring-app/internal/httputil"
	"github.com/cfstout/wizard-scoring-app/internal/service"
	"github.com/cfstout/wizard-scoring-app/internal/store"
	"github.com/cfstout/wizard-scoring-app/internal/utils"
	"github.com/cfstout/wizard-scoring-app/internal/wizard"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

func newRouter(dbConn *sqlx.DB) http.Handler {
	playerStore := store.NewPlayerStore(dbConn)
	gameStore := store.NewGameStore(dbConn)
	roundStore := store.NewRoundStore(dbConn)

	playerService := service.NewPlayerService(dbConn, playerStore, gameStore)
	gameService := service.NewGameService(dbConn, gameStore, playerStore, roundStore)
	roundService := service.NewRoundService(dbConn, roundStore, gameStore, playerStore)

	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/players", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Name string `json:"name"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httputil.BadRequest(w, "Invalid request body", err)
				return
			}

			player, err := playerService.CreatePlayer(r.Context(), req.Name)
			if err != nil {
				if errors.Is(err, service.ErrEmptyPlayerName) {
					httputil.BadRequest(w, err.Error(), nil)
					return
				}
				httputil.InternalServerError(w, "Failed to create player", err)
				return
			}
			httputil.JSON(w, http.StatusCreated, player)
		})

		r.Get("/players", func(w http.ResponseWriter, r *http.Request) {
			players, err := playerService.ListPlayers(r.Context())
			if err != nil {
				httputil.InternalServerError(w, "Failed to fetch players", err)
				return
			}
			httputil.JSON(w, http.StatusOK, players)
		})

		r.Get("/players/stats", func(w http.ResponseWriter, r *http.Request) {
			stats, err := playerService.GetPlayerStats(r.Context())
			if err != nil {
				httputil.InternalServerError(w, "Failed to fetch player stats", err)
				return
			}
			httputil.JSON(w, http.StatusOK, stats)
		})

		r.Post("/games", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				PlayerIDs []uuid.UUID `json:"playerIds"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httputil.BadRequest(w, "Invalid request body", err)
				return
			}

			game, err := gameService.CreateGame(r.Context(), req.PlayerIDs)
			if err != nil {
				if errors.Is(err, service.ErrInvalidPlayerCount) {
					httputil.BadRequest(w, err.Error(), nil)
					return
				}
				httputil.InternalServerError(w, "Failed to create game", err)
				return
			}
			httputil.JSON(w, http.StatusCreated, game)
		})

		r.Get("/games", func(w http.ResponseWriter, r *http.Request) {
			games, err := gameService.ListGames(r.Context())
			if err != nil {
				httputil.InternalServerError(w, "Failed to fetch games", err)
				return
			}
			httputil.JSON(w, http.StatusOK, games)
		})

		r.Get("/games/{id}", func(w http.ResponseWriter, r *http.Request) {
			game, err := gameService.GetGameData(r.Context(), chi.URLParam(r, "id"))
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					httputil.NotFound(w, "Game not found", err)
					return
				}
				httputil.InternalServerError(w, "Failed to fetch game", err)
				return
			}
			httputil.JSON(w, http.StatusOK, game)
		})

		r.Patch("/games/{id}", func(w http.ResponseWriter, r *http.Request) {
			gameID, err := uuid.Parse(chi.URLParam(r, "id"))
			if err != nil {
				httputil.BadRequest(w, "Invalid game ID", err)
				return
			}
			var req struct {
				Status       *wizard.GameStatus `json:"status"`
				CurrentRound *int               `json:"currentRound"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httputil.BadRequest(w, "Invalid request body", err)
				return
			}

			game, err := gameService.UpdateGame(r.Context(), gameID, req.Status, req.CurrentRound)
			if err != nil {
				switch {
				case errors.Is(err, sql.ErrNoRows):
					httputil.NotFound(w, "Game not found", err)
				case errors.Is(err, service.ErrInvalidTransition),
					errors.Is(err, service.ErrSeatsNotAssigned),
					errors.Is(err, service.ErrInvalidRoundNumber):
					httputil.BadRequest(w, err.Error(), nil)
				default:
					httputil.InternalServerError(w, "Failed to update game", err)
				}
				return
			}
			httputil.JSON(w, http.StatusOK, game)
		})

		r.Patch("/games/{id}/seats", func(w http.ResponseWriter, r *http.Request) {
			gameID, err := uuid.Parse(chi.URLParam(r, "id"))
			if err != nil {
				httputil.BadRequest(w, "Invalid game ID", err)
				return
			}
			var req struct {
				PlayerID     uuid.UUID `json:"playerId"`
				SeatPosition int       `json:"seatPosition"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httputil.BadRequest(w, "Invalid request body", err)
				return
			}

			if err := gameService.AssignSeat(r.Context(), gameID, req.PlayerID, req.SeatPosition); err != nil {
				switch {
				case errors.Is(err, sql.ErrNoRows):
					httputil.NotFound(w, "Player not found in game", err)
				case errors.Is(err, service.ErrSeatsLocked), errors.Is(err, service.ErrInvalidSeat):
					httputil.BadRequest(w, err.Error(), nil)
				default:
					httputil.InternalServerError(w, "Failed to update seat position", err)
				}
				return
			}
			httputil.JSON(w, http.StatusOK, map[string]bool{"success": true})
		})

		r.Post("/rounds", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				GameID         uuid.UUID `json:"gameId"`
				RoundNumber    int       `json:"roundNumber"`
				CardsPerPlayer int       `json:"cardsPerPlayer"`
				TrumpSuit      *string   `json:"trumpSuit"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httputil.BadRequest(w, "Invalid request body", err)
				return
			}

			round, err := roundService.CreateRound(r.Context(), req.GameID, req.RoundNumber, req.CardsPerPlayer, req.TrumpSuit)
			if err != nil {
				switch {
				case errors.Is(err, sql.ErrNoRows):
					httputil.NotFound(w, "Game not found", err)
				case errors.Is(err, service.ErrCardsRoundMismatch):
					httputil.BadRequest(w, err.Error(), nil)
				default:
					httputil.InternalServerError(w, "Failed to create round", err)
				}
				return
			}
			httputil.JSON(w, http.StatusCreated, round)
		})

		// Completing (or correcting) a round. The trick counts must exhaust
		// the cards dealt; bids carry no such constraint.
		r.Patch("/rounds", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				RoundID uuid.UUID `json:"roundId"`
				Bids    []struct {
					PlayerID  uuid.UUID `json:"playerId"`
					BidAmount int       `json:"bidAmount"`
				} `json:"bids"`
				TricksTaken map[uuid.UUID]int `json:"tricksTaken"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httputil.BadRequest(w, "Invalid request body", err)
				return
			}

			round, err := roundService.GetRound(r.Context(), req.RoundID.String())
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					httputil.NotFound(w, "Round not found", err)
					return
				}
				httputil.InternalServerError(w, "Failed to fetch round", err)
				return
			}

			totalTricks := 0
			for _, tricks := range req.TricksTaken {
				totalTricks += tricks
			}
			if totalTricks != round.CardsPerPlayer {
				httputil.BadRequest(w, "Tricks taken must add up to the cards dealt", nil)
				return
			}

			bids := make(map[uuid.UUID]int, len(req.Bids))
			for _, b := range req.Bids {
				bids[b.PlayerID] = b.BidAmount
			}

			if err := roundService.CompleteRound(r.Context(), req.RoundID, bids, req.TricksTaken); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					httputil.NotFound(w, "Round not found", err)
					return
				}
				httputil.InternalServerError(w, "Failed to complete round", err)
				return
			}
			httputil.JSON(w, http.StatusOK, map[string]bool{"success": true})
		})

		r.Get("/rounds/{id}", func(w http.ResponseWriter, r *http.Request) {
			round, err := roundService.GetRoundData(r.Context(), chi.URLParam(r, "id"))
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					httputil.NotFound(w, "Round not found", err)
					return
				}
				httputil.InternalServerError(w, "Failed to fetch round", err)
				return
			}
			httputil.JSON(w, http.StatusOK, round)
		})

		r.Patch("/rounds/{id}", func(w http.ResponseWriter, r *http.Request) {
			roundID, err := uuid.Parse(chi.URLParam(r, "id"))
			if err != nil {
				httputil.BadRequest(w, "Invalid round ID", err)
				return
			}
			var req struct {
				Status    *wizard.RoundStatus `json:"status"`
				TrumpSuit *string             `json:"trumpSuit"`
				Bids      map[uuid.UUID]int   `json:"bids"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httputil.BadRequest(w, "Invalid request body", err)
				return
			}

			var round *wizard.Round
			if len(req.Bids) > 0 {
				round, err = roundService.SubmitBids(r.Context(), roundID, req.Bids, trimTrump(req.TrumpSuit))
			} else {
				round, err = roundService.UpdateRound(r.Context(), roundID, req.Status, trimTrump(req.TrumpSuit))
			}
			if err != nil {
				switch {
				case errors.Is(err, sql.ErrNoRows):
					httputil.NotFound(w, "Round not found", err)
				case errors.Is(err, service.ErrInvalidTransition):
					httputil.BadRequest(w, err.Error(), nil)
				default:
					httputil.InternalServerError(w, "Failed to update round", err)
				}
				return
			}
			httputil.JSON(w, http.StatusOK, round)
		})

		r.Post("/bids", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				RoundID   uuid.UUID `json:"roundId"`
				PlayerID  uuid.UUID `json:"playerId"`
				BidAmount int       `json:"bidAmount"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httputil.BadRequest(w, "Invalid request body", err)
				return
			}

			bid, err := roundService.UpsertBid(r.Context(), req.RoundID, req.PlayerID, req.BidAmount)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					httputil.NotFound(w, "Round not found", err)
					return
				}
				httputil.InternalServerError(w, "Failed to create bid", err)
				return
			}
			httputil.JSON(w, http.StatusCreated, bid)
		})
	})

	return r
}

// trimTrump normalizes a client-sent trump suit, mapping "" to none.
func trimTrump(s *string) *string {
	if s == nil {
		return nil
	}
	return utils.StringOrNil(*s)
}
