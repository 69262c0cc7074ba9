package wizard

// Score returns the points a player earns for a round: a correct bid is worth
// 20 plus 10 per trick taken, a missed bid costs 10 per trick of difference.
func Score(bid, tricksTaken int) int {
	if bid == tricksTaken {
		return 20 + 10*tricksTaken
	}
	diff := bid - tricksTaken
	if diff < 0 {
		diff = -diff
	}
	return -10 * diff
}

// TotalRounds is driven by the 60-card Wizard deck divided by players.
// Player counts outside 3-6 are rejected at game creation, the default
// exists only as a fallback.
func TotalRounds(playerCount int) int {
	switch playerCount {
	case 3:
		return 20
	case 4:
		return 15
	case 5:
		return 12
	case 6:
		return 10
	default:
		return 15
	}
}

// DealerSeat returns the 1-based seat dealing the given round. The deal
// rotates one seat per round, wrapping around the table.
func DealerSeat(roundNumber, playerCount int) int {
	return ((roundNumber - 1) % playerCount) + 1
}

// FirstBidderSeat returns the seat bidding first: the one immediately after
// the dealer in rotation order.
func FirstBidderSeat(roundNumber, playerCount int) int {
	return (roundNumber % playerCount) + 1
}

// RemainingTricks is the gap between the cards dealt this round and the bids
// placed so far. Shown as a hint while bidding; total bids are allowed to
// over- or undershoot the cards dealt.
func RemainingTricks(cardsThisRound int, bids []int) int {
	total := 0
	for _, b := range bids {
		total += b
	}
	return cardsThisRound - total
}
