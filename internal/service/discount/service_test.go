package discount

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"printarcade/internal/domain"
)

const token = "session-token-0001"

type stubRepo struct {
	inserted  []domain.GameCompletion
	insertErr error
	listErr   error
}

func (s *stubRepo) Insert(_ context.Context, c *domain.GameCompletion) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	c.ID = "c-" + c.GameType
	s.inserted = append(s.inserted, *c)
	return nil
}

func (s *stubRepo) ListBySession(_ context.Context, sessionToken string) ([]domain.GameCompletion, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []domain.GameCompletion
	for _, c := range s.inserted {
		if c.SessionToken == sessionToken {
			out = append(out, c)
		}
	}
	return out, nil
}

func TestScoreToDiscount_Buckets(t *testing.T) {
	cases := map[float64]float64{
		0: 0, 19.9: 0, 20: 3, 25: 3, 30: 6, 40: 9, 49.99: 9, 50: 12, 60: 15, 65: 15, 1e9: 15,
	}
	for score, want := range cases {
		assert.Equal(t, want, ScoreToDiscount(score), "score %v", score)
	}
	assert.Equal(t, 0.0, ScoreToDiscount(math.NaN()))
}

func TestScoreToDiscount_MonotonicAndBounded(t *testing.T) {
	prev := ScoreToDiscount(0)
	for score := 0.0; score <= 200; score += 0.5 {
		got := ScoreToDiscount(score)
		assert.GreaterOrEqual(t, got, prev, "score %v", score)
		assert.LessOrEqual(t, got, float64(domain.MaxDiscountPercent))
		prev = got
	}
}

func TestRecordCompletion_Validates(t *testing.T) {
	svc := New(&stubRepo{}, nil)
	cases := map[string]CompletionInput{
		"bad token":      {SessionToken: "x", GameType: "snake", ProductID: "p1", Score: 10},
		"no game type":   {SessionToken: token, ProductID: "p1", Score: 10},
		"no product":     {SessionToken: token, GameType: "snake", Score: 10},
		"negative score": {SessionToken: token, GameType: "snake", ProductID: "p1", Score: -1},
		"inf score":      {SessionToken: token, GameType: "snake", ProductID: "p1", Score: math.Inf(1)},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.RecordCompletion(context.Background(), in)
			assert.True(t, domain.IsKind(err, domain.KindValidation), "got %v", err)
		})
	}
}

func TestRecordCompletion_PersistsEveryResult(t *testing.T) {
	repo := &stubRepo{}
	svc := New(repo, nil)

	got, err := svc.RecordCompletion(context.Background(), CompletionInput{SessionToken: token, GameType: "snake", ProductID: "p1", Score: 65})
	require.NoError(t, err)
	assert.Equal(t, 15.0, got)

	got, err = svc.RecordCompletion(context.Background(), CompletionInput{SessionToken: token, GameType: "memory", ProductID: "p1", Score: 25})
	require.NoError(t, err)
	assert.Equal(t, 3.0, got)

	got, err = svc.RecordCompletion(context.Background(), CompletionInput{SessionToken: token, GameType: "quiz", ProductID: "p1", Score: 5})
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)

	assert.Len(t, repo.inserted, 3)
}

func TestRecordCompletion_PersistenceFailure(t *testing.T) {
	svc := New(&stubRepo{insertErr: errors.New("db down")}, nil)
	_, err := svc.RecordCompletion(context.Background(), CompletionInput{SessionToken: token, GameType: "snake", ProductID: "p1", Score: 65})
	assert.True(t, domain.IsKind(err, domain.KindPersistence), "got %v", err)
}

func TestSessionTotals_CapsAggregateDiscount(t *testing.T) {
	repo := &stubRepo{}
	svc := New(repo, nil)
	ctx := context.Background()

	_, err := svc.RecordCompletion(ctx, CompletionInput{SessionToken: token, GameType: "snake", ProductID: "p1", Score: 60})
	require.NoError(t, err)
	_, err = svc.RecordCompletion(ctx, CompletionInput{SessionToken: token, GameType: "memory", ProductID: "p2", Score: 40})
	require.NoError(t, err)

	totals, err := svc.SessionTotals(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, 2, totals.TotalGamesPlayed)
	assert.Equal(t, 15.0, totals.TotalDiscountEarned)
	assert.Equal(t, 50.0, totals.AverageScore)
	assert.Equal(t, GameTypeTotals{GamesPlayed: 1, BestScore: 40, DiscountEarned: 9}, totals.ByGameType["memory"])
}

func TestSessionTotals_UnknownSessionIsEmpty(t *testing.T) {
	svc := New(&stubRepo{}, nil)
	totals, err := svc.SessionTotals(context.Background(), "never-played-token")
	require.NoError(t, err)
	assert.Zero(t, totals.TotalGamesPlayed)
	assert.Zero(t, totals.TotalDiscountEarned)
	assert.Empty(t, totals.ByGameType)
}
