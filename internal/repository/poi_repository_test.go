package repository

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Netonia/POIMapper/internal/models"
	"github.com/Netonia/POIMapper/internal/storage"
	"github.com/Netonia/POIMapper/internal/storage/memory"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestRepository(t *testing.T) (*Repository, *memory.Store) {
	t.Helper()
	store := memory.New()
	repo := New(store, WithLogger(quietLogger))
	require.NoError(t, repo.Initialize(context.Background()))
	return repo, store
}

func poi(id, name, description, category string) models.POI {
	return models.POI{
		ID:          id,
		Name:        name,
		Description: description,
		Category:    category,
		Latitude:    1.5,
		Longitude:   -2.5,
		CreatedAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func ids(pois []models.POI) []string {
	out := make([]string, len(pois))
	for i, p := range pois {
		out[i] = p.ID
	}
	return out
}

// failingStore fails every Set after the first failAfter calls.
type failingStore struct {
	storage.Store
	failAfter int
	sets      int
}

func (f *failingStore) Set(ctx context.Context, key string, value any) error {
	f.sets++
	if f.sets > f.failAfter {
		return errors.New("disk full")
	}
	return f.Store.Set(ctx, key, value)
}

func TestInitialize_EmptyStore(t *testing.T) {
	repo, _ := newTestRepository(t)
	assert.Empty(t, repo.GetAll())
	assert.NotNil(t, repo.GetAll())
}

func TestInitialize_LoadsPersistedState(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.Set(ctx, DefaultKey, []models.POI{poi("a", "A", "", "Park")}))

	repo := New(store, WithLogger(quietLogger))
	require.NoError(t, repo.Initialize(ctx))
	assert.Equal(t, []string{"a"}, ids(repo.GetAll()))

	// Re-initialising reloads from storage.
	require.NoError(t, store.Set(ctx, DefaultKey, []models.POI{poi("b", "B", "", "Park")}))
	require.NoError(t, repo.Initialize(ctx))
	assert.Equal(t, []string{"b"}, ids(repo.GetAll()))
}

func TestInitialize_CustomKey(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.Set(ctx, "other", []models.POI{poi("x", "X", "", "Park")}))

	repo := New(store, WithKey("other"), WithLogger(quietLogger))
	require.NoError(t, repo.Initialize(ctx))
	assert.Equal(t, 1, repo.Count())
}

func TestInitialize_StoreError(t *testing.T) {
	store := memory.New()
	require.NoError(t, store.Close())

	repo := New(store, WithLogger(quietLogger))
	err := repo.Initialize(context.Background())
	assert.ErrorIs(t, err, storage.ErrClosed)
}

func TestAdd_ThenGetByID(t *testing.T) {
	repo, store := newTestRepository(t)
	ctx := context.Background()

	p := models.NewPOI("Cafe Roma", "Espresso bar", "Food", 41.9, 12.5)
	require.NoError(t, repo.Add(ctx, p))

	got, ok := repo.GetByID(p.ID)
	require.True(t, ok)
	if diff := cmp.Diff(p, got); diff != "" {
		t.Errorf("GetByID mismatch (-want +got):\n%s", diff)
	}

	// Persisted immediately.
	var persisted []models.POI
	found, err := store.Get(ctx, DefaultKey, &persisted)
	require.NoError(t, err)
	require.True(t, found)
	if diff := cmp.Diff([]models.POI{p}, persisted); diff != "" {
		t.Errorf("persisted state mismatch (-want +got):\n%s", diff)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo, _ := newTestRepository(t)
	_, ok := repo.GetByID("nope")
	assert.False(t, ok)
}

func TestAdd_AppendsInOrder(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Add(ctx, poi(id, id, "", "Park")))
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids(repo.GetAll()))
}

func TestUpdate_ReplacesInPlace(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Add(ctx, poi(id, id, "", "Park")))
	}

	changed := poi("b", "Renamed", "new", "Museum")
	updated, err := repo.Update(ctx, changed)
	require.NoError(t, err)
	assert.True(t, updated)

	all := repo.GetAll()
	assert.Equal(t, []string{"a", "b", "c"}, ids(all))
	assert.Equal(t, "Renamed", all[1].Name)
	assert.Equal(t, "Museum", all[1].Category)
}

func TestUpdate_MissingIDIsSilentNoOp(t *testing.T) {
	repo, store := newTestRepository(t)
	ctx := context.Background()
	require.NoError(t, repo.Add(ctx, poi("a", "A", "", "Park")))

	before, ok := store.Raw(DefaultKey)
	require.True(t, ok)

	var events []Event
	unsubscribe := repo.Subscribe(func(_ context.Context, ev Event) error {
		events = append(events, ev)
		return nil
	})
	defer unsubscribe()

	updated, err := repo.Update(ctx, poi("missing", "X", "", "Park"))
	require.NoError(t, err)
	assert.False(t, updated)
	assert.Empty(t, events, "no notification on update miss")

	after, ok := store.Raw(DefaultKey)
	require.True(t, ok)
	assert.Equal(t, before, after, "persisted bytes unchanged")
	assert.Equal(t, []string{"a"}, ids(repo.GetAll()))
}

func TestDelete_IsIdempotent(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b"} {
		require.NoError(t, repo.Add(ctx, poi(id, id, "", "Park")))
	}

	require.NoError(t, repo.Delete(ctx, "a"))
	once := repo.GetAll()
	require.NoError(t, repo.Delete(ctx, "a"))
	twice := repo.GetAll()

	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("second delete changed state (-once +twice):\n%s", diff)
	}
	assert.Equal(t, []string{"b"}, ids(twice))
}

func TestDelete_RemovesAllMatches(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	dupes := []models.POI{poi("a", "1", "", "Park"), poi("b", "2", "", "Park"), poi("a", "3", "", "Park")}
	require.NoError(t, store.Set(ctx, DefaultKey, dupes))

	repo := New(store, WithLogger(quietLogger))
	require.NoError(t, repo.Initialize(ctx))

	// First match wins for lookups and updates.
	got, ok := repo.GetByID("a")
	require.True(t, ok)
	assert.Equal(t, "1", got.Name)

	require.NoError(t, repo.Delete(ctx, "a"))
	assert.Equal(t, []string{"b"}, ids(repo.GetAll()))
}

func TestDelete_MissingIDStillPersistsAndNotifies(t *testing.T) {
	ctx := context.Background()
	inner := memory.New()
	repo := New(inner, WithLogger(quietLogger))
	require.NoError(t, repo.Initialize(ctx))

	var events []Event
	repo.Subscribe(func(_ context.Context, ev Event) error {
		events = append(events, ev)
		return nil
	})

	require.NoError(t, repo.Delete(ctx, "missing"))

	raw, ok := inner.Raw(DefaultKey)
	require.True(t, ok, "delete persists even when nothing matched")
	assert.Equal(t, "[]", string(raw))
	require.Len(t, events, 1)
	assert.Equal(t, Event{Kind: EventDeleted, ID: "missing", Count: 0}, events[0])
}

func TestFilterByCategory(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	require.NoError(t, repo.Add(ctx, poi("a", "A", "", "Park")))
	require.NoError(t, repo.Add(ctx, poi("b", "B", "", "Museum")))
	require.NoError(t, repo.Add(ctx, poi("c", "C", "", "Park")))
	require.NoError(t, repo.Add(ctx, poi("d", "D", "", "All")))

	tests := []struct {
		category string
		want     []string
	}{
		{"", []string{"a", "b", "c", "d"}},
		{models.AllCategories, []string{"a", "b", "c", "d"}},
		{"Park", []string{"a", "c"}},
		{"park", []string{}},
		{"Museum", []string{"b"}},
	}
	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(repo.FilterByCategory(tt.category)))
		})
	}

	if diff := cmp.Diff(repo.GetAll(), repo.FilterByCategory("All")); diff != "" {
		t.Errorf("FilterByCategory(All) differs from GetAll:\n%s", diff)
	}
}

func TestSearchByText(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	require.NoError(t, repo.Add(ctx, poi("a", "Cafe Roma", "espresso", "Food")))
	require.NoError(t, repo.Add(ctx, poi("b", "Museum", "Old CAFE inside", "Culture")))
	require.NoError(t, repo.Add(ctx, poi("c", "Park", "", "Nature")))

	assert.Equal(t, []string{"a", "b", "c"}, ids(repo.SearchByText("")))
	assert.Equal(t, []string{"a", "b"}, ids(repo.SearchByText("cafe")))
	assert.Equal(t, []string{"a", "b"}, ids(repo.SearchByText("CAFE")))
	assert.Equal(t, []string{"a"}, ids(repo.SearchByText("ESPRESSO")))
	assert.Empty(t, repo.SearchByText("zoo"))
}

func TestQuery_CombinesFilters(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	require.NoError(t, repo.Add(ctx, poi("a", "Cafe Roma", "", "Food")))
	require.NoError(t, repo.Add(ctx, poi("b", "Cafe Museum", "", "Culture")))

	assert.Equal(t, []string{"b"}, ids(repo.Query("Culture", "cafe")))
	assert.Equal(t, []string{"a", "b"}, ids(repo.Query("All", "cafe")))
}

func TestCategories(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	for i, c := range []string{"Park", "Food", "Park", "Other"} {
		require.NoError(t, repo.Add(ctx, poi(string(rune('a'+i)), "", "", c)))
	}
	assert.Equal(t, []string{"Park", "Food", "Other"}, repo.Categories())
}

func TestSnapshotsAreDetached(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	require.NoError(t, repo.Add(ctx, poi("a", "A", "", "Park")))

	all := repo.GetAll()
	all[0].Name = "mutated"
	filtered := repo.FilterByCategory("Park")
	filtered[0].Name = "mutated"

	got, _ := repo.GetByID("a")
	assert.Equal(t, "A", got.Name)
}

func TestNotification_AfterPersistence(t *testing.T) {
	repo, store := newTestRepository(t)
	ctx := context.Background()

	var seen [][]models.POI
	repo.Subscribe(func(ctx context.Context, ev Event) error {
		var persisted []models.POI
		if _, err := store.Get(ctx, DefaultKey, &persisted); err != nil {
			return err
		}
		seen = append(seen, persisted)
		return nil
	})

	require.NoError(t, repo.Add(ctx, poi("a", "A", "", "Park")))
	_, err := repo.Update(ctx, poi("a", "B", "", "Park"))
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, "a"))

	require.Len(t, seen, 3)
	assert.Equal(t, "A", seen[0][0].Name)
	assert.Equal(t, "B", seen[1][0].Name)
	assert.Empty(t, seen[2])
}

func TestNotification_OrderAndIsolation(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	var order []string
	repo.Subscribe(func(context.Context, Event) error {
		order = append(order, "first")
		return errors.New("listener failed")
	})
	repo.Subscribe(func(context.Context, Event) error {
		order = append(order, "second")
		panic("boom")
	})
	unsubscribe := repo.Subscribe(func(context.Context, Event) error {
		order = append(order, "third")
		return nil
	})

	require.NoError(t, repo.Add(ctx, poi("a", "A", "", "Park")))
	assert.Equal(t, []string{"first", "second", "third"}, order)

	unsubscribe()
	unsubscribe()
	order = nil
	require.NoError(t, repo.Delete(ctx, "a"))
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestNotification_Initialize(t *testing.T) {
	store := memory.New()
	repo := New(store, WithLogger(quietLogger))

	var events []Event
	repo.Subscribe(func(_ context.Context, ev Event) error {
		events = append(events, ev)
		return nil
	})
	require.NoError(t, repo.Initialize(context.Background()))
	assert.Equal(t, []Event{{Kind: EventInitialized}}, events)
}

func TestPersistenceFailure_LeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Store: memory.New(), failAfter: 1}
	repo := New(store, WithLogger(quietLogger))
	require.NoError(t, repo.Initialize(ctx))
	require.NoError(t, repo.Add(ctx, poi("a", "A", "", "Park")))

	notified := 0
	repo.Subscribe(func(context.Context, Event) error {
		notified++
		return nil
	})

	assert.Error(t, repo.Add(ctx, poi("b", "B", "", "Park")))
	_, err := repo.Update(ctx, poi("a", "changed", "", "Park"))
	assert.Error(t, err)
	assert.Error(t, repo.Delete(ctx, "a"))

	assert.Zero(t, notified)
	all := repo.GetAll()
	assert.Equal(t, []string{"a"}, ids(all))
	assert.Equal(t, "A", all[0].Name)
}
