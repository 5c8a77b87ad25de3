package ledger

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/repository/cartstate"
)

var (
	shirt = domain.Product{
		ID:             1,
		DisplayName:    "Test Product 1",
		ArticleType:    "Shirt",
		BaseColour:     "Blue",
		Price:          domain.PriceFromFloat(29.99),
		Gender:         "Men",
		MasterCategory: "Apparel",
		SubCategory:    "Topwear",
		Image:          "/images/product1.jpg",
		Season:         "Summer",
		Year:           2024,
		Usage:          "Casual",
		CreatedAt:      time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		UpdatedAt:      time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC),
	}
	pants = domain.Product{
		ID:             2,
		DisplayName:    "Test Product 2",
		ArticleType:    "Pants",
		BaseColour:     "Black",
		Price:          domain.MustPrice("49.99"),
		Gender:         "Men",
		MasterCategory: "Apparel",
		SubCategory:    "Bottomwear",
		Image:          "/images/product2.jpg",
		Season:         "Winter",
		Year:           2024,
		Usage:          "Casual",
	}
)

type failingStore struct {
	saves int
}

func (s *failingStore) Load(context.Context, string) ([]byte, error) {
	return nil, errors.New("quota exceeded")
}

func (s *failingStore) Save(context.Context, string, []byte) error {
	s.saves++
	return errors.New("quota exceeded")
}

// ctxStore refuses writes on a done context, like a database driver would.
type ctxStore struct {
	cartstate.Repository
}

func (s ctxStore) Save(ctx context.Context, key string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Repository.Save(ctx, key, payload)
}

func price(s string) domain.Price { return domain.MustPrice(s) }

func TestLedger_StartsEmpty(t *testing.T) {
	l := New(nil, DefaultKey)
	assert.Equal(t, 0, l.Len())
	assert.Equal(t, 0, l.ItemCount())
	assert.True(t, l.Total().IsZero())
	assert.Empty(t, l.Items())
}

func TestLedger_AddItemSingle(t *testing.T) {
	ctx := context.Background()
	l := New(nil, DefaultKey)
	l.ClearCart(ctx)
	l.AddItem(ctx, shirt, 3)

	items := l.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, 3, l.ItemCount())
	assert.True(t, l.Total().Equal(price("89.97")), "total %s", l.Total())
}

func TestLedger_AddSameProductMerges(t *testing.T) {
	ctx := context.Background()
	l := New(nil, DefaultKey)
	l.AddItem(ctx, shirt, 2)
	l.AddItem(ctx, shirt, 3)

	items := l.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
	assert.Equal(t, 5, l.ItemCount())
}

func TestLedger_AddKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	l := New(nil, DefaultKey)
	l.AddItem(ctx, pants, 1)
	l.AddItem(ctx, shirt, 1)
	l.AddItem(ctx, pants, 1)

	items := l.Items()
	require.Len(t, items, 2)
	assert.Equal(t, int64(2), items[0].Product.ID)
	assert.Equal(t, int64(1), items[1].Product.ID)
}

func TestLedger_AddNonPositiveIgnored(t *testing.T) {
	ctx := context.Background()
	store := cartstate.NewMemory()
	l := New(store, DefaultKey)
	l.AddItem(ctx, shirt, 0)
	l.AddItem(ctx, shirt, -2)

	assert.Equal(t, 0, l.Len())
	_, err := store.Load(ctx, DefaultKey)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLedger_UpdateQuantity(t *testing.T) {
	ctx := context.Background()
	l := New(nil, DefaultKey)
	l.AddItem(ctx, shirt, 2)
	l.UpdateQuantity(ctx, shirt.ID, 5)

	assert.Equal(t, 5, l.Items()[0].Quantity)
}

func TestLedger_UpdateQuantityNonPositiveRemoves(t *testing.T) {
	for _, qty := range []int{0, -1} {
		ctx := context.Background()
		l := New(nil, DefaultKey)
		l.AddItem(ctx, shirt, 1)
		l.AddItem(ctx, pants, 1)
		l.UpdateQuantity(ctx, shirt.ID, qty)

		items := l.Items()
		require.Len(t, items, 1, "qty %d", qty)
		assert.Equal(t, pants.ID, items[0].Product.ID)
		assert.Equal(t, 1, l.ItemCount())
		assert.True(t, l.Total().Equal(price("49.99")))
	}
}

func TestLedger_UpdateUnknownIsNoop(t *testing.T) {
	ctx := context.Background()
	l := New(nil, DefaultKey)
	l.AddItem(ctx, shirt, 1)
	l.UpdateQuantity(ctx, 99, 4)
	l.UpdateQuantity(ctx, 99, 0)

	require.Len(t, l.Items(), 1)
	assert.Equal(t, 1, l.ItemCount())
}

func TestLedger_RemoveItem(t *testing.T) {
	ctx := context.Background()
	l := New(nil, DefaultKey)
	l.AddItem(ctx, shirt, 1)
	l.AddItem(ctx, pants, 1)
	l.RemoveItem(ctx, shirt.ID)

	items := l.Items()
	require.Len(t, items, 1)
	assert.Equal(t, pants.ID, items[0].Product.ID)
}

func TestLedger_RemoveUnknownIsNoop(t *testing.T) {
	ctx := context.Background()
	l := New(nil, DefaultKey)
	l.AddItem(ctx, shirt, 2)
	before := l.Total()
	l.RemoveItem(ctx, 42)

	assert.Equal(t, 1, l.Len())
	assert.Equal(t, 2, l.ItemCount())
	assert.True(t, l.Total().Equal(before))
}

func TestLedger_ClearCart(t *testing.T) {
	ctx := context.Background()
	l := New(nil, DefaultKey)
	l.AddItem(ctx, shirt, 1)
	l.AddItem(ctx, pants, 4)
	l.ClearCart(ctx)

	assert.Equal(t, 0, l.Len())
	assert.Equal(t, 0, l.ItemCount())
	assert.True(t, l.Total().IsZero())

	l.ClearCart(ctx)
	assert.Equal(t, 0, l.Len())
}

func TestLedger_TotalMixedPrices(t *testing.T) {
	ctx := context.Background()
	stringPriced := shirt
	stringPriced.Price = price("29.99")

	l := New(nil, DefaultKey)
	l.AddItem(ctx, stringPriced, 2)
	assert.True(t, l.Total().Equal(price("59.98")), "total %s", l.Total())

	numeric := New(nil, DefaultKey)
	numeric.AddItem(ctx, shirt, 2)
	assert.True(t, numeric.Total().Equal(l.Total()))

	l.AddItem(ctx, pants, 1)
	assert.True(t, l.Total().Equal(price("109.97")), "total %s", l.Total())
}

func TestLedger_EndToEndScenario(t *testing.T) {
	ctx := context.Background()
	l := New(nil, DefaultKey)
	l.AddItem(ctx, domain.Product{ID: 1, Price: domain.PriceFromFloat(29.99)}, 2)
	l.AddItem(ctx, domain.Product{ID: 2, Price: domain.PriceFromFloat(49.99)}, 1)
	l.UpdateQuantity(ctx, 1, 4)
	l.RemoveItem(ctx, 2)

	items := l.Items()
	require.Len(t, items, 1)
	assert.Equal(t, int64(1), items[0].Product.ID)
	assert.Equal(t, 4, items[0].Quantity)
	assert.True(t, l.Total().Equal(price("119.96")), "total %s", l.Total())
	assert.Equal(t, 119.96, l.Total().Float64())
	assert.Equal(t, 4, l.ItemCount())
}

func TestLedger_PersistsEveryMutation(t *testing.T) {
	ctx := context.Background()
	store := cartstate.NewMemory()
	l := New(store, SessionKey("abc"))

	steps := []func(){
		func() { l.AddItem(ctx, shirt, 2) },
		func() { l.AddItem(ctx, pants, 1) },
		func() { l.UpdateQuantity(ctx, shirt.ID, 7) },
		func() { l.RemoveItem(ctx, pants.ID) },
		func() { l.ClearCart(ctx) },
	}
	for i, step := range steps {
		step()
		payload, err := store.Load(ctx, "cart-storage:abc")
		require.NoError(t, err, "step %d", i)
		restored, err := Decode(payload)
		require.NoError(t, err)
		if diff := cmp.Diff(l.Items(), restored, cmp.Comparer(sameLines)); diff != "" {
			t.Fatalf("step %d: persisted snapshot differs (-mem +store):\n%s", i, diff)
		}
	}
}

func TestLedger_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := cartstate.NewMemory()
	saved := New(store, DefaultKey)
	saved.AddItem(ctx, shirt, 2)
	saved.AddItem(ctx, pants, 3)

	restored := Open(ctx, store, DefaultKey)
	if diff := cmp.Diff(saved.Items(), restored.Items()); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, restored.Total().Equal(saved.Total()))
}

func TestLedger_PersistFailureKeepsMemoryState(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{}
	l := Open(ctx, store, DefaultKey)
	assert.Equal(t, 0, l.Len())

	l.AddItem(ctx, shirt, 2)
	l.UpdateQuantity(ctx, shirt.ID, 3)

	assert.Equal(t, 2, store.saves)
	assert.Equal(t, 3, l.ItemCount())
}

func TestLedger_OpenDiscardsCorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	store := cartstate.NewMemory()
	require.NoError(t, store.Save(ctx, DefaultKey, []byte(`{"state":`)))

	l := Open(ctx, store, DefaultKey)
	assert.Equal(t, 0, l.Len())
}

func TestLedger_Listener(t *testing.T) {
	ctx := context.Background()
	var counts []int
	l := New(nil, DefaultKey, WithListener(func(items []domain.LineItem) {
		n := 0
		for _, item := range items {
			n += item.Quantity
		}
		counts = append(counts, n)
	}))
	l.AddItem(ctx, shirt, 2)
	l.AddItem(ctx, pants, 1)
	l.ClearCart(ctx)

	assert.Equal(t, []int{2, 3, 0}, counts)
}

func TestLedger_ItemsIsCopy(t *testing.T) {
	ctx := context.Background()
	l := New(nil, DefaultKey)
	l.AddItem(ctx, shirt, 1)
	items := l.Items()
	items[0].Quantity = 100
	assert.Equal(t, 1, l.ItemCount())
}

func TestLedger_ConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	l := New(cartstate.NewMemory(), DefaultKey)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.AddItem(ctx, shirt, 1)
		}()
	}
	wg.Wait()

	require.Len(t, l.Items(), 1)
	assert.Equal(t, 50, l.ItemCount())
}

func sameLines(a, b domain.LineItem) bool {
	return a.Product.ID == b.Product.ID && a.Quantity == b.Quantity && a.Product.Price.Equal(b.Product.Price)
}

func TestLedger_AddSaturates(t *testing.T) {
	ctx := context.Background()
	l := New(nil, DefaultKey)
	l.AddItem(ctx, shirt, math.MaxInt-1)
	l.AddItem(ctx, shirt, 5)

	items := l.Items()
	require.Len(t, items, 1)
	assert.Equal(t, math.MaxInt, items[0].Quantity)
	assert.Positive(t, l.ItemCount())
}

func TestLedger_PersistsWithCancelledContext(t *testing.T) {
	store := ctxStore{Repository: cartstate.NewMemory()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l := New(store, SessionKey("gone"))
	l.AddItem(ctx, shirt, 3)

	restored := Open(context.Background(), store, SessionKey("gone"))
	assert.Equal(t, 3, restored.ItemCount())
}

func TestLedger_Deduct(t *testing.T) {
	ctx := context.Background()
	store := cartstate.NewMemory()
	l := New(store, DefaultKey)
	l.AddItem(ctx, shirt, 2)
	l.AddItem(ctx, pants, 1)
	ordered := l.Items()

	extra := domain.Product{ID: 99, Price: price("5.00")}
	l.AddItem(ctx, extra, 1)
	l.AddItem(ctx, shirt, 1)
	l.Deduct(ctx, ordered)

	items := l.Items()
	require.Len(t, items, 2)
	assert.Equal(t, shirt.ID, items[0].Product.ID)
	assert.Equal(t, 1, items[0].Quantity)
	assert.Equal(t, int64(99), items[1].Product.ID)
	assert.Equal(t, 1, items[1].Quantity)

	restored := Open(ctx, store, DefaultKey)
	assert.Equal(t, 2, restored.ItemCount())
}

func TestLedger_DeductUnknownAndEmpty(t *testing.T) {
	ctx := context.Background()
	l := New(nil, DefaultKey)
	l.AddItem(ctx, shirt, 1)
	l.Deduct(ctx, nil)
	l.Deduct(ctx, []domain.LineItem{{Product: pants, Quantity: 1}, {Product: shirt, Quantity: 0}})

	assert.Equal(t, 1, l.ItemCount())
}

func TestLedger_Forget(t *testing.T) {
	ctx := context.Background()
	store := cartstate.NewMemory()
	l := New(store, DefaultKey)
	l.AddItem(ctx, shirt, 1)

	assert.False(t, l.Forget(ctx))
	_, err := store.Load(ctx, DefaultKey)
	require.NoError(t, err)

	l.ClearCart(ctx)
	assert.True(t, l.Forget(ctx))
	_, err = store.Load(ctx, DefaultKey)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.False(t, New(nil, DefaultKey).Forget(ctx))
	assert.False(t, New(&failingStore{}, DefaultKey).Forget(ctx))
}
