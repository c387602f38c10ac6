package ids

import (
	"sort"
	"sync"
	"testing"
)

func TestGenerateStrictlyIncreasing(t *testing.T) {
	var prev int64
	for i := 0; i < 10000; i++ {
		id := Generate()
		if id <= prev {
			t.Fatalf("id %d not greater than previous %d at i=%d", id, prev, i)
		}
		prev = id
	}
}

func TestGenerateUniqueUnderConcurrency(t *testing.T) {
	const goroutines = 16
	const perGoroutine = 1000

	var mu sync.Mutex
	all := make([]int64, 0, goroutines*perGoroutine)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]int64, 0, perGoroutine)
			for i := 0; i < perGoroutine; i++ {
				local = append(local, Generate())
			}
			mu.Lock()
			all = append(all, local...)
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	for i := 1; i < len(all); i++ {
		if all[i] == all[i-1] {
			t.Fatalf("duplicate id %d", all[i])
		}
	}
}

func TestGenerateStringParsesBack(t *testing.T) {
	s := GenerateString()
	if s == "" || s == "0" {
		t.Fatalf("GenerateString = %q", s)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			t.Fatalf("non-digit in id %q", s)
		}
	}
}
