package discounts

import (
	"context"
	"sync"
	"testing"
	"time"

	"cafehub/apperr"
	"cafehub/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

type memStore struct {
	mu    sync.Mutex
	codes map[string]*models.DiscountCode
}

func newMemStore(codes ...*models.DiscountCode) *memStore {
	s := &memStore{codes: map[string]*models.DiscountCode{}}
	for _, d := range codes {
		s.codes[d.CafeID+"/"+d.Code] = d
	}
	return s
}

func (s *memStore) FindByCode(_ context.Context, cafeID, code string) (*models.DiscountCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.codes[cafeID+"/"+code]
	if !ok {
		return nil, apperr.NotFound("discount code not found")
	}
	cp := *d
	return &cp, nil
}

func (s *memStore) Redeem(_ context.Context, cafeID, code string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.codes[cafeID+"/"+code]
	if !ok || !d.IsActive || d.Exhausted() || d.Expired(now) {
		return apperr.Conflict("discount code %s can no longer be used", code)
	}
	d.CurrentUses++
	return nil
}

func (s *memStore) Unredeem(_ context.Context, cafeID, code string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.codes[cafeID+"/"+code]; ok && d.CurrentUses > 0 {
		d.CurrentUses--
	}
	return nil
}

func code(cafeID, c string, percent float64, maxUses int) *models.DiscountCode {
	d := &models.DiscountCode{Code: c, DiscountPercent: percent, MaxUses: maxUses}
	d.ID, d.CafeID, d.IsActive = c+"-id", cafeID, true
	return d
}

func TestQuoteAndRedeemRespectCap(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemStore(code("c1", "SAVE10", 10, 1)))

	q, err := svc.Quote(ctx, "c1", " save10 ", 100)
	require.NoError(t, err)
	assert.True(t, q.Valid)
	assert.Equal(t, "SAVE10", q.Code)
	assert.Equal(t, 10.0, q.DiscountAmount)
	assert.Equal(t, 90.0, q.FinalAmount)

	require.NoError(t, svc.Redeem(ctx, "c1", "SAVE10"))

	q, err = svc.Quote(ctx, "c1", "SAVE10", 100)
	require.NoError(t, err)
	assert.False(t, q.Valid)
	assert.Equal(t, "discount code has reached its usage limit", q.Message)
	assert.Equal(t, 100.0, q.FinalAmount)

	err = svc.Redeem(ctx, "c1", "SAVE10")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = svc.Apply(ctx, "c1", "SAVE10", 100)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestQuoteIsPerCafe(t *testing.T) {
	svc := NewService(newMemStore(code("c1", "SAVE10", 10, 0)))
	q, err := svc.Quote(context.Background(), "c2", "SAVE10", 50)
	require.NoError(t, err)
	assert.False(t, q.Valid)
	assert.Equal(t, "discount code not found", q.Message)
}

func TestQuoteRejectsInactiveAndExpired(t *testing.T) {
	off := code("c1", "OFF", 5, 0)
	off.IsActive = false
	old := code("c1", "OLD", 5, 0)
	past := time.Now().Add(-time.Hour)
	old.ExpiresAt = &past
	svc := NewService(newMemStore(off, old))

	q, _ := svc.Quote(context.Background(), "c1", "OFF", 10)
	assert.Equal(t, "discount code is inactive", q.Message)
	q, _ = svc.Quote(context.Background(), "c1", "OLD", 10)
	assert.Equal(t, "discount code has expired", q.Message)
}

func TestUnlimitedCodeRedeemsConcurrently(t *testing.T) {
	store := newMemStore(code("c1", "ALWAYS", 20, 0))
	svc := NewService(store)

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, svc.Redeem(context.Background(), "c1", "ALWAYS"))
		}()
	}
	wg.Wait()
	assert.Equal(t, 25, store.codes["c1/ALWAYS"].CurrentUses)
}

func TestRedeemFilterCarriesCap(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	f := RedeemFilter("c1", "save10", now)
	assert.Equal(t, "c1", f["cafe_id"])
	assert.Equal(t, "SAVE10", f["code"])
	assert.Equal(t, true, f["is_active"])

	and := f["$and"].(bson.A)
	capOr := and[0].(bson.M)["$or"].(bson.A)
	assert.Equal(t, bson.M{"max_uses": 0}, capOr[0])
	assert.Contains(t, capOr[1].(bson.M), "$expr")
}

func TestReleaseFreesAUse(t *testing.T) {
	ctx := context.Background()
	save := code("c1", "SAVE10", 10, 1)
	svc := NewService(newMemStore(save))

	require.NoError(t, svc.Redeem(ctx, "c1", "SAVE10"))
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(svc.Redeem(ctx, "c1", "SAVE10")))

	require.NoError(t, svc.Release(ctx, "c1", "SAVE10"))
	assert.Equal(t, 0, save.CurrentUses)
	require.NoError(t, svc.Release(ctx, "c1", "SAVE10"))
	assert.Equal(t, 0, save.CurrentUses, "counter never goes below zero")

	require.NoError(t, svc.Redeem(ctx, "c1", "SAVE10"))
}

func TestUnredeemFilterNeedsAUse(t *testing.T) {
	f := UnredeemFilter("c1", " save10 ")
	assert.Equal(t, "SAVE10", f["code"])
	assert.Equal(t, bson.M{"$gt": 0}, f["current_uses"])
}
