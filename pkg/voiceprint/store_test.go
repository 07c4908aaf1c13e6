package voiceprint

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestVectorCodecRoundTrip(t *testing.T) {
	vec := []float32{1.5, -0.25, 0, float32(math.Pi), -1e-7}
	blob := EncodeVector(vec)
	if len(blob) != 4*len(vec) {
		t.Fatalf("blob length = %d, want %d", len(blob), 4*len(vec))
	}
	got, err := DecodeVector(blob, len(vec))
	if err != nil {
		t.Fatalf("DecodeVector: %v", err)
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Errorf("value %d = %v, want %v", i, got[i], vec[i])
		}
	}
}

func TestDecodeVectorCorrupt(t *testing.T) {
	if _, err := DecodeVector([]byte{1, 2, 3}, 4); !errors.Is(err, ErrCorruptRecord) {
		t.Errorf("truncated blob: expected ErrCorruptRecord, got %v", err)
	}
	// Valid length for some dimension, wrong for this store.
	blob := EncodeVector([]float32{1, 2})
	if _, err := DecodeVector(blob, 3); !errors.Is(err, ErrCorruptRecord) {
		t.Errorf("wrong dimension: expected ErrCorruptRecord, got %v", err)
	}
}

// storeSuite exercises the Store contract against a concrete backend.
func storeSuite(t *testing.T, newStore func(t *testing.T, dim int) Store) {
	ctx := context.Background()

	t.Run("UpsertFetch", func(t *testing.T) {
		s := newStore(t, 3)
		defer s.Close()
		if err := s.Upsert(ctx, "alice", []float32{1, 2, 3}); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
		got, err := s.Fetch(ctx, []string{"alice"})
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		vec, ok := got["alice"]
		if !ok {
			t.Fatal("alice missing from fetch result")
		}
		if vec[0] != 1 || vec[1] != 2 || vec[2] != 3 {
			t.Errorf("vector = %v, want [1 2 3]", vec)
		}
	})

	t.Run("UpsertOverwrites", func(t *testing.T) {
		s := newStore(t, 2)
		defer s.Close()
		if err := s.Upsert(ctx, "alice", []float32{1, 0}); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
		if err := s.Upsert(ctx, "alice", []float32{0, 1}); err != nil {
			t.Fatalf("Upsert overwrite: %v", err)
		}
		n, err := s.Count(ctx)
		if err != nil {
			t.Fatalf("Count: %v", err)
		}
		if n != 1 {
			t.Errorf("Count = %d, want 1 (one record per identity)", n)
		}
		got, err := s.Fetch(ctx, []string{"alice"})
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if vec := got["alice"]; vec[0] != 0 || vec[1] != 1 {
			t.Errorf("vector = %v, want the latest [0 1]", vec)
		}
	})

	t.Run("FetchSkipsMissing", func(t *testing.T) {
		s := newStore(t, 2)
		defer s.Close()
		if err := s.Upsert(ctx, "alice", []float32{1, 0}); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
		got, err := s.Fetch(ctx, []string{"alice", "ghost"})
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if len(got) != 1 {
			t.Errorf("fetch returned %d records, want 1", len(got))
		}
		if _, ok := got["ghost"]; ok {
			t.Error("ghost should be absent, not zero-valued")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		s := newStore(t, 2)
		defer s.Close()
		existed, err := s.Delete(ctx, "ghost")
		if err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if existed {
			t.Error("delete of absent key reported existed=true")
		}
		if err := s.Upsert(ctx, "alice", []float32{1, 0}); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
		existed, err = s.Delete(ctx, "alice")
		if err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if !existed {
			t.Error("delete of present key reported existed=false")
		}
		n, _ := s.Count(ctx)
		if n != 0 {
			t.Errorf("Count after delete = %d, want 0", n)
		}
	})

	t.Run("DimensionEnforced", func(t *testing.T) {
		s := newStore(t, 4)
		defer s.Close()
		err := s.Upsert(ctx, "alice", []float32{1, 2})
		if !errors.Is(err, ErrDimensionMismatch) {
			t.Fatalf("expected ErrDimensionMismatch, got %v", err)
		}
	})

	t.Run("FetchAll", func(t *testing.T) {
		s := newStore(t, 2)
		defer s.Close()
		for _, key := range []string{"alice", "bob", "carol"} {
			if err := s.Upsert(ctx, key, []float32{1, 0}); err != nil {
				t.Fatalf("Upsert %s: %v", key, err)
			}
		}
		got, err := s.FetchAll(ctx)
		if err != nil {
			t.Fatalf("FetchAll: %v", err)
		}
		if len(got) != 3 {
			t.Errorf("FetchAll returned %d records, want 3", len(got))
		}
	})
}

func TestMemoryStore(t *testing.T) {
	storeSuite(t, func(t *testing.T, dim int) Store {
		return NewMemoryStore(dim)
	})
}

func TestBadgerStore(t *testing.T) {
	storeSuite(t, func(t *testing.T, dim int) Store {
		s, err := NewBadgerStore(BadgerStoreOptions{InMemory: true, Dimension: dim})
		if err != nil {
			t.Fatalf("NewBadgerStore: %v", err)
		}
		return s
	})
}

func TestBadgerStoreRequiresDir(t *testing.T) {
	if _, err := NewBadgerStore(BadgerStoreOptions{Dimension: 4}); err == nil {
		t.Fatal("expected error for on-disk store without a directory")
	}
}

func TestMemoryStoreCorruptRecord(t *testing.T) {
	s := NewMemoryStore(4)
	if err := s.Upsert(context.Background(), "alice", []float32{1, 2, 3, 4}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	s.data["alice"] = []byte{0xde, 0xad} // simulate on-disk corruption

	if _, err := s.Fetch(context.Background(), []string{"alice"}); !errors.Is(err, ErrCorruptRecord) {
		t.Fatalf("Fetch: expected ErrCorruptRecord, got %v", err)
	}
	if _, err := s.FetchAll(context.Background()); !errors.Is(err, ErrCorruptRecord) {
		t.Fatalf("FetchAll: expected ErrCorruptRecord, got %v", err)
	}
}
