package market

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/IlyasAtabaev731/barter-market/internal/domain/models"
	"github.com/IlyasAtabaev731/barter-market/internal/storage/memory"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	store     *memory.Storage
	catalog   *Catalog
	ledger    *Ledger
	community *Community
}

// sequentialStore hides the memory backend's DeleteItemCascade so the
// delete-then-purge path is exercised.
type sequentialStore struct {
	Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return buildFixture(t, memory.New(), nil)
}

func newSequentialFixture(t *testing.T) *fixture {
	t.Helper()
	mem := memory.New()
	return buildFixture(t, mem, sequentialStore{Store: mem})
}

func buildFixture(t *testing.T, mem *memory.Storage, store Store) *fixture {
	t.Helper()
	if store == nil {
		store = mem
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tick := func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	ledger := NewLedger(log, store, store)
	ledger.now = tick
	catalog := NewCatalog(log, store, store, ledger)
	catalog.now = tick
	community := NewCommunity(log, store, catalog)
	community.cost = bcrypt.MinCost

	return &fixture{store: mem, catalog: catalog, ledger: ledger, community: community}
}

func (f *fixture) user(t *testing.T, name string) *models.User {
	t.Helper()
	u, err := f.community.SignUp(context.Background(), name, "password")
	require.NoError(t, err)
	return u
}

func (f *fixture) item(t *testing.T, owner *models.User, name, price string) *models.Item {
	t.Helper()
	it, err := f.catalog.Create(context.Background(), owner.ID, ItemInput{
		Name:     name,
		Price:    price,
		ImageURL: "https://example.com/" + name + ".png",
	})
	require.NoError(t, err)
	return it
}

func (f *fixture) offer(t *testing.T, requested *models.Item, sender *models.User, offered ...*models.Item) *models.Offer {
	t.Helper()
	ids := make([]string, 0, len(offered))
	for _, it := range offered {
		ids = append(ids, it.ID)
	}
	o, err := f.ledger.Create(context.Background(), requested.ID, ids, sender.ID)
	require.NoError(t, err)
	return o
}
