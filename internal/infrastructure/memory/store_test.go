package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/recipepanel/foodsync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func brand(s string) *string { return &s }

func TestProductStore_UpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	clock := t0
	store := NewProductStore().WithClock(func() time.Time { return clock })

	items := []domain.ProductItem{
		{Barcode: "5900512300108", Name: "Mleko", Brand: brand("Mlekovita")},
		{Barcode: "5900512300115", Name: "Kefir"},
	}

	n, err := store.Upsert(ctx, items, domain.SourceOpenFoodFacts)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	first, err := store.FindByBarcode(ctx, domain.SourceOpenFoodFacts, "5900512300108")
	require.NoError(t, err)

	clock = t0.Add(time.Hour)
	_, err = store.Upsert(ctx, items, domain.SourceOpenFoodFacts)
	require.NoError(t, err)

	second, err := store.FindByBarcode(ctx, domain.SourceOpenFoodFacts, "5900512300108")
	require.NoError(t, err)

	assert.Equal(t, 2, store.Len())
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, t0, second.CreatedAt)
	assert.Equal(t, t0.Add(time.Hour), second.UpdatedAt)

	// only updated_at moved
	first.UpdatedAt = second.UpdatedAt
	assert.Equal(t, *first, *second)
}

func TestProductStore_UpsertReplacesColumns(t *testing.T) {
	ctx := context.Background()
	store := NewProductStore()

	_, err := store.Upsert(ctx, []domain.ProductItem{{Barcode: "1", Name: "Old", Brand: brand("X")}}, domain.SourceOpenFoodFacts)
	require.NoError(t, err)
	_, err = store.Upsert(ctx, []domain.ProductItem{{Barcode: "1", Name: "New"}}, domain.SourceOpenFoodFacts)
	require.NoError(t, err)

	rec, err := store.FindByBarcode(ctx, domain.SourceOpenFoodFacts, "1")
	require.NoError(t, err)
	assert.Equal(t, "New", rec.NameLocal)
	assert.Nil(t, rec.Brand)
}

func TestProductStore_SourcesAreSeparate(t *testing.T) {
	ctx := context.Background()
	store := NewProductStore()

	_, err := store.Upsert(ctx, []domain.ProductItem{{Barcode: "1", Name: "a"}}, "other")
	require.NoError(t, err)

	rec, err := store.FindByBarcode(ctx, domain.SourceOpenFoodFacts, "1")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestProductStore_FindByBarcodesKeepsOrder(t *testing.T) {
	ctx := context.Background()
	store := NewProductStore()
	_, err := store.Upsert(ctx, []domain.ProductItem{{Barcode: "1", Name: "a"}, {Barcode: "2", Name: "b"}}, domain.SourceOpenFoodFacts)
	require.NoError(t, err)

	recs, err := store.FindByBarcodes(ctx, domain.SourceOpenFoodFacts, []string{"2", "9", "1"})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "2", recs[0].Barcode)
	assert.Equal(t, "1", recs[1].Barcode)
}

func TestProductStore_SearchByName(t *testing.T) {
	ctx := context.Background()
	store := NewProductStore()
	_, err := store.Upsert(ctx, []domain.ProductItem{
		{Barcode: "1", Name: "Ser Gouda"},
		{Barcode: "2", Name: "Mleko", Brand: brand("Serowar")},
		{Barcode: "3", Name: "Chleb"},
	}, domain.SourceOpenFoodFacts)
	require.NoError(t, err)

	recs, err := store.SearchByName(ctx, domain.SourceOpenFoodFacts, "SER", 10)
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	recs, err = store.SearchByName(ctx, domain.SourceOpenFoodFacts, "ser", 1)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestSeedRunStore(t *testing.T) {
	ctx := context.Background()
	store := NewSeedRunStore()
	run := &domain.SeedRun{ID: uuid.New(), Terms: []string{"mleko"}, Status: domain.SeedStatusRunning}

	_, err := store.Get(ctx, run.ID)
	assert.ErrorIs(t, err, domain.ErrSeedRunNotFound)
	assert.ErrorIs(t, store.Save(ctx, run), domain.ErrSeedRunNotFound)

	require.NoError(t, store.Create(ctx, run))

	run.Status = domain.SeedStatusDone
	got, err := store.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SeedStatusRunning, got.Status, "stored copy is isolated from the caller")

	require.NoError(t, store.Save(ctx, run))
	got, err = store.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SeedStatusDone, got.Status)
}
