// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package stash

import (
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"
)

type entry struct {
	name    string
	expires time.Time
}

func TestStore_InsertFind(t *testing.T) {
	s := New[entry]()

	want := entry{name: "alice", expires: time.Unix(1700000000, 0)}
	key := s.Insert(want)

	if len(key) != 36 {
		t.Errorf("Insert() key length = %d, want 36", len(key))
	}

	got, ok := s.Find(key)
	if !ok {
		t.Fatalf("Find(%q) not found", key)
	}
	if got != want {
		t.Errorf("Find() = %+v, want %+v", got, want)
	}
}

func TestStore_FindMissing(t *testing.T) {
	s := New[string]()
	if _, ok := s.Find("does-not-exist"); ok {
		t.Error("Find() on empty store returned ok")
	}
}

func TestStore_Erase(t *testing.T) {
	s := New[int]()
	key := s.Insert(42)

	if !s.Erase(key) {
		t.Fatal("Erase() = false, want true")
	}
	if _, ok := s.Find(key); ok {
		t.Error("Find() after Erase() returned ok")
	}
	if s.Erase(key) {
		t.Error("second Erase() = true, want false")
	}
}

func TestStore_InsertRerollsOnCollision(t *testing.T) {
	candidates := []string{"dup", "dup", "dup", "fresh"}
	var mu sync.Mutex
	gen := func() string {
		mu.Lock()
		defer mu.Unlock()
		k := candidates[0]
		candidates = candidates[1:]
		return k
	}

	s := New[string](WithKeyGenerator[string](gen))
	first := s.Insert("a")
	second := s.Insert("b")

	if first != "dup" {
		t.Errorf("first key = %q, want %q", first, "dup")
	}
	if second != "fresh" {
		t.Errorf("second key = %q, want %q", second, "fresh")
	}
	if v, _ := s.Find("dup"); v != "a" {
		t.Errorf("Find(dup) = %q, want %q (existing entry overwritten)", v, "a")
	}
}

func TestStore_EraseIf(t *testing.T) {
	now := time.Now()
	s := New[entry]()

	expired := []string{
		s.Insert(entry{name: "old1", expires: now.Add(-time.Hour)}),
		s.Insert(entry{name: "old2", expires: now.Add(-time.Second)}),
	}
	live := []string{
		s.Insert(entry{name: "new1", expires: now.Add(time.Hour)}),
		s.Insert(entry{name: "new2", expires: now.Add(time.Minute)}),
		s.Insert(entry{name: "new3", expires: now.Add(24 * time.Hour)}),
	}

	removed := s.EraseIf(func(_ string, e entry) bool {
		return e.expires.Before(now)
	})

	if removed != len(expired) {
		t.Errorf("EraseIf() = %d, want %d", removed, len(expired))
	}
	for _, k := range expired {
		if _, ok := s.Find(k); ok {
			t.Errorf("expired key %s still present", k)
		}
	}
	for _, k := range live {
		if _, ok := s.Find(k); !ok {
			t.Errorf("live key %s was removed", k)
		}
	}
	if s.Len() != len(live) {
		t.Errorf("Len() = %d, want %d", s.Len(), len(live))
	}
}

func TestStore_Keys(t *testing.T) {
	s := New[int]()
	want := []string{s.Insert(1), s.Insert(2), s.Insert(3)}

	got := s.Keys()
	sort.Strings(got)
	sort.Strings(want)

	if len(got) != len(want) {
		t.Fatalf("Keys() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Keys()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestStore_Restore(t *testing.T) {
	s := New[string]()
	s.Restore("persisted-key", "bob")

	if v, ok := s.Find("persisted-key"); !ok || v != "bob" {
		t.Errorf("Find() = %q, %v; want bob, true", v, ok)
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := New[string]()

	var wg sync.WaitGroup
	keys := make(chan string, 400)

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				k := s.Insert(fmt.Sprintf("w%d-%d", worker, j))
				keys <- k
				s.Find(k)
				s.Keys()
			}
		}(i)
	}

	wg.Wait()
	close(keys)

	seen := make(map[string]bool)
	for k := range keys {
		if seen[k] {
			t.Fatalf("duplicate key %s", k)
		}
		seen[k] = true
	}

	if s.Len() != 400 {
		t.Errorf("Len() = %d, want 400", s.Len())
	}

	removed := s.EraseIf(func(string, string) bool { return true })
	if removed != 400 {
		t.Errorf("EraseIf(all) = %d, want 400", removed)
	}
}
