// Package discount records mini-game completions and converts scores into
// bounded discount percentages.
package discount

import (
	"context"
	"io"
	"log"
	"math"
	"strings"

	"printarcade/internal/domain"
)

const maxLabelLen = 64

type completionRepo interface {
	Insert(ctx context.Context, c *domain.GameCompletion) error
	ListBySession(ctx context.Context, sessionToken string) ([]domain.GameCompletion, error)
}

type Service struct {
	repo   completionRepo
	logger *log.Logger
}

func New(repo completionRepo, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{repo: repo, logger: logger}
}

var thresholds = []struct {
	minScore float64
	percent  float64
}{
	{60, 15},
	{50, 12},
	{40, 9},
	{30, 6},
	{20, 3},
}

// ScoreToDiscount maps a game score to a discount percent. The result is
// monotonically non-decreasing in score and never exceeds MaxDiscountPercent.
func ScoreToDiscount(score float64) float64 {
	if math.IsNaN(score) {
		return 0
	}
	for _, t := range thresholds {
		if score >= t.minScore {
			return domain.ClampDiscount(t.percent)
		}
	}
	return 0
}

type CompletionInput struct {
	SessionToken string  `json:"sessionToken"`
	GameType     string  `json:"gameType"`
	ProductID    string  `json:"productId"`
	Score        float64 `json:"score"`
}

// RecordCompletion appends a completion row, including zero-discount results,
// and returns the discount earned.
func (s *Service) RecordCompletion(ctx context.Context, in CompletionInput) (float64, error) {
	if !domain.ValidSessionToken(in.SessionToken) {
		return 0, domain.ValidationError("invalid session token")
	}
	gameType := strings.TrimSpace(in.GameType)
	productID := strings.TrimSpace(in.ProductID)
	if gameType == "" || len(gameType) > maxLabelLen {
		return 0, domain.ValidationError("gameType required (max 64 chars)")
	}
	if productID == "" || len(productID) > maxLabelLen {
		return 0, domain.ValidationError("productId required (max 64 chars)")
	}
	if math.IsNaN(in.Score) || math.IsInf(in.Score, 0) || in.Score < 0 {
		return 0, domain.ValidationError("score must be a finite non-negative number")
	}

	c := &domain.GameCompletion{
		SessionToken:   in.SessionToken,
		GameType:       gameType,
		ProductID:      productID,
		Score:          in.Score,
		DiscountEarned: ScoreToDiscount(in.Score),
	}
	if err := s.repo.Insert(ctx, c); err != nil {
		s.logger.Printf("discount: record game_type=%s product_id=%s error=%v", gameType, productID, err)
		return 0, domain.PersistenceError("record game completion", err)
	}
	s.logger.Printf("discount: recorded game_type=%s product_id=%s score=%g discount=%g", gameType, productID, in.Score, c.DiscountEarned)
	return c.DiscountEarned, nil
}

type GameTypeTotals struct {
	GamesPlayed    int     `json:"gamesPlayed"`
	BestScore      float64 `json:"bestScore"`
	DiscountEarned float64 `json:"discountEarned"`
}

type Totals struct {
	TotalGamesPlayed    int                       `json:"totalGamesPlayed"`
	TotalDiscountEarned float64                   `json:"totalDiscountEarned"`
	AverageScore        float64                   `json:"averageScore"`
	ByGameType          map[string]GameTypeTotals `json:"byGameType"`
}

// SessionTotals aggregates a session's completions. Discount sums are capped
// at MaxDiscountPercent; an unknown session yields zero totals.
func (s *Service) SessionTotals(ctx context.Context, sessionToken string) (Totals, error) {
	totals := Totals{ByGameType: map[string]GameTypeTotals{}}
	if !domain.ValidSessionToken(sessionToken) {
		return totals, domain.ValidationError("invalid session token")
	}
	completions, err := s.repo.ListBySession(ctx, sessionToken)
	if err != nil {
		s.logger.Printf("discount: session totals error=%v", err)
		return totals, domain.PersistenceError("load game completions", err)
	}

	var scoreSum, discountSum float64
	for _, c := range completions {
		scoreSum += c.Score
		discountSum += c.DiscountEarned

		g := totals.ByGameType[c.GameType]
		g.GamesPlayed++
		if c.Score > g.BestScore {
			g.BestScore = c.Score
		}
		g.DiscountEarned = domain.ClampDiscount(g.DiscountEarned + c.DiscountEarned)
		totals.ByGameType[c.GameType] = g
	}
	totals.TotalGamesPlayed = len(completions)
	totals.TotalDiscountEarned = domain.ClampDiscount(discountSum)
	if len(completions) > 0 {
		totals.AverageScore = math.Round(scoreSum/float64(len(completions))*100) / 100
	}
	return totals, nil
}
