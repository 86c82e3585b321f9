package billing

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yolotrainer/portal/app/models"
)

type fakeProvider struct {
	mu        sync.Mutex
	customers int
	checkouts []CheckoutParams
	portals   []string
	err       error
}

func (p *fakeProvider) CreateCustomer(ctx context.Context, in CustomerParams) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.customers++
	return "cus_new_" + in.UserID, nil
}

func (p *fakeProvider) CreateCheckoutSession(ctx context.Context, in CheckoutParams) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.checkouts = append(p.checkouts, in)
	return "https://checkout.example/" + in.PriceID, nil
}

func (p *fakeProvider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.portals = append(p.portals, customerID)
	return "https://portal.example/" + customerID, nil
}

func newBridge(t *testing.T) (*Bridge, *fakeProvider, *fixture) {
	f := newFixture(t)
	p := &fakeProvider{}
	return NewBridge(f.repos.User, p, f.prices, "https://yolotrainer.com", 14, zap.NewNop()), p, f
}

func TestStartCheckoutRejectsUnknownPrice(t *testing.T) {
	b, p, f := newBridge(t)
	u := &models.User{Email: "a@x.com"}
	require.NoError(t, f.repos.User.Create(context.Background(), u))

	_, err := b.StartCheckout(context.Background(), u.ID, "price_malicious_999")
	assert.ErrorIs(t, err, ErrPriceNotAllowed)
	assert.Zero(t, p.customers)
}

func TestStartCheckoutCreatesCustomerOnce(t *testing.T) {
	b, p, f := newBridge(t)
	ctx := context.Background()
	u := &models.User{Email: "a@x.com", Name: "Ann"}
	require.NoError(t, f.repos.User.Create(ctx, u))

	url, err := b.StartCheckout(ctx, u.ID, "price_pro_123")
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.example/price_pro_123", url)

	_, err = b.StartCheckout(ctx, u.ID, "price_ent_456")
	require.NoError(t, err)

	assert.Equal(t, 1, p.customers)
	require.Len(t, p.checkouts, 2)
	assert.Equal(t, "cus_new_"+u.ID, p.checkouts[1].CustomerID)
	assert.Equal(t, 14, p.checkouts[0].TrialDays)
	assert.Equal(t, "https://yolotrainer.com/billing?success=true", p.checkouts[0].SuccessURL)
	assert.Equal(t, "https://yolotrainer.com/billing?canceled=true", p.checkouts[0].CancelURL)

	stored, err := f.repos.User.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "cus_new_"+u.ID, stored.CustomerID())
}

func TestStartCheckoutProviderFailure(t *testing.T) {
	b, p, f := newBridge(t)
	ctx := context.Background()
	u := &models.User{Email: "a@x.com"}
	require.NoError(t, f.repos.User.Create(ctx, u))

	p.err = context.DeadlineExceeded
	_, err := b.StartCheckout(ctx, u.ID, "price_pro_123")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	stored, err := f.repos.User.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "", stored.CustomerID())
}

func TestOpenPortal(t *testing.T) {
	b, p, f := newBridge(t)
	ctx := context.Background()

	u := &models.User{Email: "a@x.com"}
	require.NoError(t, f.repos.User.Create(ctx, u))
	_, err := b.OpenPortal(ctx, u.ID)
	assert.ErrorIs(t, err, ErrNoCustomer)

	linked := f.customer(t, "b@x.com", "cus_b")
	url, err := b.OpenPortal(ctx, linked.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://portal.example/cus_b", url)
	assert.Equal(t, []string{"cus_b"}, p.portals)
}
