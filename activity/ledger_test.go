package activity

import "testing"

func TestLedgerObserveOrdering(t *testing.T) {
	l := NewLedger()

	// [5, 5, 7, 3, 9] must announce only 5, 7, 9
	seq := []int{5, 5, 7, 3, 9}
	want := []bool{true, false, true, false, true}
	for i, id := range seq {
		if got := l.Observe("Alice", id); got != want[i] {
			t.Errorf("Observe(Alice, %d) [step %d] = %v, want %v", id, i, got, want[i])
		}
	}
	if last, ok := l.Peek("Alice"); !ok || last != 9 {
		t.Errorf("Peek = %d ok=%v, want 9", last, ok)
	}
}

func TestLedgerPerUserIsolation(t *testing.T) {
	l := NewLedger()
	l.Observe("Alice", 100)
	// ids are not globally monotonic; a lower id for another user is new
	if !l.Observe("Bob", 3) {
		t.Error("Bob's first activity rejected")
	}
	if l.Len() != 2 {
		t.Errorf("Len = %d, want 2", l.Len())
	}
}

func TestLedgerDrop(t *testing.T) {
	l := NewLedger()
	l.Observe("Alice", 10)
	l.Drop("Alice")
	if _, ok := l.Peek("Alice"); ok {
		t.Error("entry survived Drop")
	}
	// after a drop the same id is announceable again (restart semantics)
	if !l.Observe("Alice", 10) {
		t.Error("Observe after Drop rejected")
	}
}
