package domain

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampDiscount_Range(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{-10, 0},
		{0, 0},
		{3, 3},
		{7.5, 7.5},
		{15, 15},
		{15.01, 15},
		{40, 15},
		{math.Inf(1), 15},
		{math.Inf(-1), 0},
		{math.NaN(), 0},
	}
	for _, tc := range cases {
		got := ClampDiscount(tc.in)
		assert.Equal(t, tc.want, got, "clamp(%v)", tc.in)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, float64(MaxDiscountPercent))
	}
}

func TestClampDiscount_Idempotent(t *testing.T) {
	for d := -20.0; d <= 60; d += 0.5 {
		once := ClampDiscount(d)
		assert.Equal(t, once, ClampDiscount(once), "clamp not idempotent at %v", d)
		if d >= 0 && d <= MaxDiscountPercent {
			assert.Equal(t, d, once)
		}
	}
}

func TestErrorKinds(t *testing.T) {
	err := NotFoundError("order missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found sentinel through Unwrap")
	}
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.True(t, IsKind(PersistenceError("insert", errors.New("boom")), KindPersistence))
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
}

func TestValidSessionToken(t *testing.T) {
	assert.True(t, ValidSessionToken("abcdefghijklmnop"))
	assert.True(t, ValidSessionToken("sess_0123-4567_89AB"))
	assert.False(t, ValidSessionToken("short"))
	assert.False(t, ValidSessionToken("has spaces in the token"))
	assert.False(t, ValidSessionToken("../../etc/passwd/aaaaaaaa"))
}
