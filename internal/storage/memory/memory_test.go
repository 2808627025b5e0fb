package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/Netonia/POIMapper/internal/storage"
)

type record struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	store := New()

	t.Run("Get on missing key reports not found", func(t *testing.T) {
		var got []record
		found, err := store.Get(ctx, "missing", &got)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if found {
			t.Error("expected missing key to be not found")
		}
	})

	t.Run("Set then Get returns the value", func(t *testing.T) {
		want := []record{{Name: "a", Value: 1.5}, {Name: "b", Value: -2}}
		if err := store.Set(ctx, "k", want); err != nil {
			t.Fatalf("Set failed: %v", err)
		}

		var got []record
		found, err := store.Get(ctx, "k", &got)
		if err != nil || !found {
			t.Fatalf("Get: found=%v err=%v", found, err)
		}
		if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
			t.Errorf("Get returned %+v, want %+v", got, want)
		}
	})

	t.Run("stored value is detached from the caller", func(t *testing.T) {
		value := []record{{Name: "original"}}
		if err := store.Set(ctx, "detached", value); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		value[0].Name = "mutated"

		var got []record
		if _, err := store.Get(ctx, "detached", &got); err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got[0].Name != "original" {
			t.Errorf("expected 'original', got %q", got[0].Name)
		}
	})

	t.Run("Raw exposes encoded bytes", func(t *testing.T) {
		raw, ok := store.Raw("detached")
		if !ok {
			t.Fatal("expected raw bytes")
		}
		if string(raw) != `[{"name":"original","value":0}]` {
			t.Errorf("unexpected raw value %s", raw)
		}
	})

	t.Run("unencodable values are rejected", func(t *testing.T) {
		if err := store.Set(ctx, "bad", make(chan int)); err == nil {
			t.Error("expected encode error")
		}
	})

	t.Run("closed store fails", func(t *testing.T) {
		if err := store.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
		if err := store.Set(ctx, "k", 1); !errors.Is(err, storage.ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
		var v int
		if _, err := store.Get(ctx, "k", &v); !errors.Is(err, storage.ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
	})
}

func TestStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := New()
	if err := store.Set(ctx, "k", 1); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
