package domain

import "time"

// GameCompletion is one append-only record of a finished mini-game.
type GameCompletion struct {
	ID             string    `json:"id"`
	SessionToken   string    `json:"-"`
	GameType       string    `json:"gameType"`
	ProductID      string    `json:"productId"`
	Score          float64   `json:"score"`
	DiscountEarned float64   `json:"discountEarned"`
	CompletedAt    time.Time `json:"completedAt"`
}
