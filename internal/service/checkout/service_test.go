package checkout

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"printarcade/internal/domain"
	"printarcade/internal/fulfillment"
	"printarcade/internal/kvstore"
	"printarcade/internal/payment"
)

type stubGateway struct {
	lastReq   payment.SessionRequest
	createErr error
	session   *payment.Session
	getErr    error
}

func (g *stubGateway) CreateCheckoutSession(_ context.Context, req payment.SessionRequest) (*payment.Session, error) {
	g.lastReq = req
	if g.createErr != nil {
		return nil, g.createErr
	}
	return &payment.Session{ID: "cs_test_1", URL: "https://pay.example/cs_test_1"}, nil
}

func (g *stubGateway) RetrieveSession(_ context.Context, id string) (*payment.Session, error) {
	if g.getErr != nil {
		return nil, g.getErr
	}
	return g.session, nil
}

type stubShipping struct {
	cents int64
	err   error
}

func (s stubShipping) EstimateShipping(context.Context, fulfillment.Recipient, []fulfillment.Item) (int64, error) {
	return s.cents, s.err
}

type stubOrders struct {
	order *domain.Order
	err   error
}

func (s stubOrders) GetByID(context.Context, string) (*domain.Order, error) {
	return s.order, s.err
}

func validInput() CreateSessionInput {
	return CreateSessionInput{
		Items: []domain.CartItem{
			{ProductID: "p1", ExternalVariantID: "v1", Name: "Tee", UnitPriceCents: 2000, Quantity: 2},
			{ProductID: "p2", ExternalVariantID: "v2", Name: "Mug", UnitPriceCents: 1000, Quantity: 1},
		},
		Shipping: domain.ShippingInfo{
			Name:  "Ada Lovelace",
			Email: "ada@example.com",
			Address: domain.Address{
				Address1: "1 Main St", City: "Portland", CountryCode: "US", Zip: "97201",
			},
		},
		DiscountPercent: 40,
	}
}

func newService(store kvstore.Store, gw *stubGateway, ship shippingEstimator) *Service {
	svc := New(store, gw, ship, stubOrders{err: domain.ErrNotFound}, Config{FlatShippingCents: 499}, nil)
	svc.newID = func(time.Time) string { return "ORD-TEST-0001" }
	return svc
}

func TestCreateSession_CapsClaimedDiscount(t *testing.T) {
	store := kvstore.NewMemory()
	gw := &stubGateway{}
	svc := newService(store, gw, stubShipping{cents: 650})

	sess, err := svc.CreateSession(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, "ORD-TEST-0001", sess.OrderID)
	assert.Equal(t, "cs_test_1", sess.SessionID)

	require.Len(t, gw.lastReq.Lines, 2)
	assert.Equal(t, int64(1700), gw.lastReq.Lines[0].UnitAmountCents)
	assert.Equal(t, int64(850), gw.lastReq.Lines[1].UnitAmountCents)
	assert.Equal(t, int64(650), gw.lastReq.ShippingCents)
	assert.Equal(t, "ada@example.com", gw.lastReq.CustomerEmail)
	assert.Equal(t, "ORD-TEST-0001", gw.lastReq.OrderID)

	var snap domain.CartSnapshot
	require.NoError(t, kvstore.GetJSON(context.Background(), store, SnapshotKey("ORD-TEST-0001"), &snap))
	assert.Equal(t, 15.0, snap.DiscountPercent)
	assert.Equal(t, int64(650), snap.ShippingCents)
	assert.Len(t, snap.Items, 2)
}

func TestCreateSession_EmbedsShippingInMetadata(t *testing.T) {
	gw := &stubGateway{}
	svc := newService(kvstore.NewMemory(), gw, stubShipping{cents: 650})

	_, err := svc.CreateSession(context.Background(), validInput())
	require.NoError(t, err)

	md := gw.lastReq.Metadata
	assert.Equal(t, "Ada Lovelace", md["shippingName"])
	assert.Equal(t, "ada@example.com", md["shippingEmail"])
	assert.Equal(t, "1 Main St", md["shippingAddress1"])
	assert.Equal(t, "Portland", md["shippingCity"])
	assert.Equal(t, "97201", md["shippingZip"])
	assert.Equal(t, "US", md["shippingCountry"])
	assert.Equal(t, "15", md["discountPercent"])
}

func TestCreateSession_ShippingFallsBackToFlatRate(t *testing.T) {
	gw := &stubGateway{}
	svc := newService(kvstore.NewMemory(), gw, stubShipping{err: errors.New("provider down")})

	_, err := svc.CreateSession(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, int64(499), gw.lastReq.ShippingCents)
}

func TestCreateSession_Validation(t *testing.T) {
	svc := newService(kvstore.NewMemory(), &stubGateway{}, nil)
	cases := map[string]func(*CreateSessionInput){
		"no items":         func(in *CreateSessionInput) { in.Items = nil },
		"zero quantity":    func(in *CreateSessionInput) { in.Items[0].Quantity = 0 },
		"quantity over 99": func(in *CreateSessionInput) { in.Items[0].Quantity = 100 },
		"free item":        func(in *CreateSessionInput) { in.Items[1].UnitPriceCents = 0 },
		"no variant":       func(in *CreateSessionInput) { in.Items[0].ExternalVariantID = "" },
		"bad email":        func(in *CreateSessionInput) { in.Shipping.Email = "not-an-email" },
		"no zip":           func(in *CreateSessionInput) { in.Shipping.Address.Zip = "" },
		"bad country":      func(in *CreateSessionInput) { in.Shipping.Address.CountryCode = "USA" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := validInput()
			mutate(&in)
			_, err := svc.CreateSession(context.Background(), in)
			assert.True(t, domain.IsKind(err, domain.KindValidation), "got %v", err)
		})
	}
}

func TestCreateSession_GatewayFailureLeavesSnapshotToExpire(t *testing.T) {
	store := kvstore.NewMemory()
	svc := newService(store, &stubGateway{createErr: errors.New("stripe 500")}, nil)

	_, err := svc.CreateSession(context.Background(), validInput())
	assert.True(t, domain.IsKind(err, domain.KindExternalProvider), "got %v", err)

	_, err = store.Get(context.Background(), SnapshotKey("ORD-TEST-0001"))
	assert.NoError(t, err)
}

func TestGetSession(t *testing.T) {
	gw := &stubGateway{session: &payment.Session{
		ID: "cs_1", Status: "complete", PaymentStatus: "paid", AmountTotal: 5248,
		Metadata: map[string]string{"orderId": "ORD-1"},
	}}
	svc := New(kvstore.NewMemory(), gw, nil, stubOrders{order: &domain.Order{ID: "ORD-1", Status: domain.StatusConfirmed}}, Config{}, nil)

	got, err := svc.GetSession(context.Background(), "cs_1")
	require.NoError(t, err)
	assert.Equal(t, "ORD-1", got.OrderID)
	assert.Equal(t, domain.StatusConfirmed, got.OrderStatus)
	assert.Equal(t, int64(5248), got.AmountTotal)
}

func TestGetSession_Unknown(t *testing.T) {
	svc := New(kvstore.NewMemory(), &stubGateway{getErr: payment.ErrSessionNotFound}, nil, nil, Config{}, nil)
	_, err := svc.GetSession(context.Background(), "cs_missing")
	assert.True(t, domain.IsKind(err, domain.KindNotFound), "got %v", err)
}

func TestNewOrderIDFormat(t *testing.T) {
	at := time.UnixMilli(1700000000000)
	id := NewOrderID(at)
	assert.Regexp(t, regexp.MustCompile(`^ORD-[0-9A-Z]+-[0-9A-F]{4}$`), id)
	assert.Contains(t, id, "ORD-LOYW3V28-")
}
