package common

import "testing"

func TestBoundedLRUEviction(t *testing.T) {
	var evicted []int
	c := NewBoundedLRU(2, func(k int, _ string) { evicted = append(evicted, k) })

	c.GetOrCreate(1, func() string { return "one" })
	c.GetOrCreate(2, func() string { return "two" })
	if v, ok := c.Get(1); !ok || v != "one" {
		t.Fatalf("Get(1) = %q, %v", v, ok)
	}
	c.GetOrCreate(3, func() string { return "three" })

	if len(evicted) != 1 || evicted[0] != 2 {
		t.Errorf("evicted = %v, want [2]", evicted)
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}

	calls := 0
	got := c.GetOrCreate(3, func() string { calls++; return "other" })
	if got != "three" || calls != 0 {
		t.Error("existing entry must not be recreated")
	}

	c.Remove(3)
	if _, ok := c.Get(3); ok {
		t.Error("removed entry still present")
	}
}
