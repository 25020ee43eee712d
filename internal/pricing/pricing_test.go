package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"printarcade/internal/domain"
)

func TestPrice_ClaimedDiscountIsCapped(t *testing.T) {
	items := []domain.CartItem{
		{ProductID: "p1", ExternalVariantID: "v1", UnitPriceCents: 2000, Quantity: 2},
		{ProductID: "p2", ExternalVariantID: "v2", UnitPriceCents: 1000, Quantity: 1},
	}
	q := Price(items, 40, 499)

	assert.Equal(t, float64(15), q.DiscountPercent)
	assert.Equal(t, int64(5000), q.SubtotalCents)
	assert.Equal(t, int64(750), q.DiscountCents)
	assert.Equal(t, int64(5000-750+499), q.TotalCents)
	require.Len(t, q.Lines, 2)
	assert.Equal(t, int64(1700), q.Lines[0].DiscountedUnitPriceCents)
	assert.Equal(t, int64(3400), q.Lines[0].SubtotalCents)
}

func TestPrice_LineDiscountOverridesAggregate(t *testing.T) {
	items := []domain.CartItem{
		{ProductID: "p1", UnitPriceCents: 1000, Quantity: 1, DiscountPercent: 9},
		{ProductID: "p2", UnitPriceCents: 1000, Quantity: 1, DiscountPercent: 99},
		{ProductID: "p3", UnitPriceCents: 1000, Quantity: 1},
	}
	q := Price(items, 3, 0)

	assert.Equal(t, 9.0, q.Lines[0].DiscountPercent)
	assert.Equal(t, 15.0, q.Lines[1].DiscountPercent)
	assert.Equal(t, 3.0, q.Lines[2].DiscountPercent)
	assert.Equal(t, int64(90+150+30), q.DiscountCents)
}

func TestPrice_NoDiscount(t *testing.T) {
	q := Price([]domain.CartItem{{ProductID: "p1", UnitPriceCents: 1999, Quantity: 3}}, 0, 0)
	assert.Equal(t, int64(0), q.DiscountCents)
	assert.Equal(t, int64(5997), q.TotalCents)
}

func TestDiscountedUnitPrice_RoundsHalfUp(t *testing.T) {
	// 1999 * 0.97 = 1939.03
	assert.Equal(t, int64(1939), DiscountedUnitPrice(1999, 3))
	// 1250 * 0.94 = 1175
	assert.Equal(t, int64(1175), DiscountedUnitPrice(1250, 6))
	// 999 * 0.85 = 849.15
	assert.Equal(t, int64(849), DiscountedUnitPrice(999, 15))
	// 1010 * 0.85 = 858.5
	assert.Equal(t, int64(859), DiscountedUnitPrice(1010, 15))
	assert.Equal(t, int64(849), DiscountedUnitPrice(999, 200))
}

func TestCents(t *testing.T) {
	assert.Equal(t, "19.99", Cents(1999))
	assert.Equal(t, "0.05", Cents(5))
	assert.Equal(t, "120.00", Cents(12000))
}

func TestParseCents(t *testing.T) {
	for in, want := range map[string]int64{"4.99": 499, "0": 0, "12.5": 1250, "3.005": 301} {
		got, err := ParseCents(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseCents("four")
	assert.Error(t, err)
}
