// internal/register/store_test.go
package register

import (
	"sync"
	"testing"
)

func TestStore_WriteAndSnapshot(t *testing.T) {
	s := NewStore()

	if err := s.Write(1, []float64{1, 2, 3}); err != nil {
		t.Fatalf("Write err=%v", err)
	}
	s.SetElapsed(1.25)

	snap := s.Snapshot()
	if len(snap) != StoreSlots {
		t.Fatalf("snapshot len=%d want=%d", len(snap), StoreSlots)
	}
	if snap[SlotElapsed] != 1.25 || snap[1] != 1 || snap[3] != 3 {
		t.Fatalf("unexpected snapshot head: %v", snap[:4])
	}

	// snapshots are copies
	snap[1] = 99
	if s.Snapshot()[1] != 1 {
		t.Fatalf("snapshot aliases store memory")
	}
}

func TestStore_OutOfRangeWriteLeavesSlots(t *testing.T) {
	s := NewStore()
	_ = s.Write(StoreSlots-2, []float64{7, 8})

	if err := s.Write(StoreSlots-1, []float64{1, 2}); err == nil {
		t.Fatalf("expected out of range error, got nil")
	}

	snap := s.Snapshot()
	if snap[StoreSlots-2] != 7 || snap[StoreSlots-1] != 8 {
		t.Fatalf("rejected write modified the store: %v", snap[StoreSlots-2:])
	}
}

func TestStore_LastBankFits(t *testing.T) {
	last := Banks[len(Banks)-1]
	if last.FirstSlot()+last.Len() != StoreSlots {
		t.Fatalf("bank %s ends at slot %d, store has %d slots",
			last.Name, last.FirstSlot()+last.Len()-1, StoreSlots)
	}
}

func TestStore_ConcurrentReaders(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			_ = s.Write(1, []float64{float64(i), float64(i)})
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				snap := s.Snapshot()
				if snap[1] != snap[2] {
					t.Errorf("torn read: %v != %v", snap[1], snap[2])
					return
				}
			}
		}()
	}

	wg.Wait()
}

func TestSchedule_Due(t *testing.T) {
	cases := []struct {
		s     Schedule
		state int
		want  bool
	}{
		{EveryTick, 0, true}, {EveryTick, 1, true}, {EveryTick, 2, true},
		{UnlessState1, 0, true}, {UnlessState1, 1, false}, {UnlessState1, 2, true},
		{UpToState1, 0, true}, {UpToState1, 1, true}, {UpToState1, 2, false},
	}
	for _, tc := range cases {
		if got := tc.s.Due(tc.state); got != tc.want {
			t.Fatalf("schedule %d state %d: got=%v want=%v", tc.s, tc.state, got, tc.want)
		}
	}
}
