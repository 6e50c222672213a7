package ordmap_test

import (
	"testing"

	"bfoptc/internal/ordmap"
)

func TestSetPreservesInsertionOrder(t *testing.T) {
	m := ordmap.New[int, string]()
	m.Set(3, "c")
	m.Set(1, "a")
	m.Set(2, "b")
	got := m.Keys()
	want := []int{3, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("key %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestSetOverwriteKeepsOriginalPosition(t *testing.T) {
	m := ordmap.New[int, string]()
	m.Set(1, "a")
	m.Set(2, "b")
	m.Set(1, "a-updated")
	if got := m.Keys(); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("expected order [1 2] preserved on overwrite, got %v", got)
	}
	v, ok := m.Get(1)
	if !ok || v != "a-updated" {
		t.Fatalf("got (%q, %v), want (a-updated, true)", v, ok)
	}
}

func TestDeleteRemovesKeyAndPosition(t *testing.T) {
	m := ordmap.New[int, string]()
	m.Set(1, "a")
	m.Set(2, "b")
	m.Set(3, "c")
	m.Delete(2)
	if m.Has(2) {
		t.Fatalf("expected key 2 to be gone")
	}
	if got := m.Keys(); len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Fatalf("expected order [1 3] after deleting 2, got %v", got)
	}
	if m.Len() != 2 {
		t.Fatalf("expected length 2, got %d", m.Len())
	}
}

func TestDeleteMissingKeyIsNoop(t *testing.T) {
	m := ordmap.New[int, string]()
	m.Set(1, "a")
	m.Delete(99)
	if m.Len() != 1 {
		t.Fatalf("expected length unchanged, got %d", m.Len())
	}
}

func TestSortedKeysOrdersAscendingWithoutMutatingInsertionOrder(t *testing.T) {
	m := ordmap.New[int32, int32]()
	m.Set(5, 50)
	m.Set(-2, -20)
	m.Set(3, 30)
	sorted := ordmap.SortedKeys(m, func(a, b int32) bool { return a < b })
	want := []int32{-2, 3, 5}
	for i := range want {
		if sorted[i] != want[i] {
			t.Errorf("sorted[%d] = %d, want %d", i, sorted[i], want[i])
		}
	}
	if got := m.Keys(); got[0] != 5 || got[1] != -2 || got[2] != 3 {
		t.Errorf("expected insertion order untouched by SortedKeys, got %v", got)
	}
}

func TestRangeStopsEarly(t *testing.T) {
	m := ordmap.New[int, int]()
	m.Set(1, 10)
	m.Set(2, 20)
	m.Set(3, 30)
	var seen []int
	m.Range(func(key, val int) bool {
		seen = append(seen, key)
		return key != 2
	})
	want := []int{1, 2}
	if len(seen) != len(want) {
		t.Fatalf("got %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("seen[%d] = %d, want %d", i, seen[i], want[i])
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	m := ordmap.New[int, string]()
	m.Set(1, "a")
	clone := m.Clone()
	clone.Set(2, "b")
	if m.Has(2) {
		t.Fatalf("expected mutating the clone to leave the original untouched")
	}
	if !clone.Has(1) || !clone.Has(2) {
		t.Fatalf("expected clone to carry both the original and new entries")
	}
}
