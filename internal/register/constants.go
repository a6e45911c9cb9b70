// internal/register/constants.go
package register

// Register store layout constants.
// These values mirror the meter's register map and MUST NOT be configurable.

// ---- STORE GEOMETRY ----

// StoreSlots is the fixed number of slots in the register store:
// slot 0 plus one slot per logical register 0..197.
const StoreSlots = 199

// SlotElapsed holds the seconds elapsed since the previous poll tick.
const SlotElapsed = 0

// WordsPerRegister is the number of raw 16-bit words per logical register.
const WordsPerRegister = 2

// ---- BANKS ----

// Schedule decides on which cadence states a bank is refreshed.
type Schedule uint8

const (
	// EveryTick refreshes on every tick.
	EveryTick Schedule = iota
	// UnlessState1 refreshes when the cadence state is not 1.
	UnlessState1
	// UpToState1 refreshes when the cadence state is <= 1.
	UpToState1
)

// Due reports whether a bank with this schedule refreshes at state.
func (s Schedule) Due(state int) bool {
	switch s {
	case UnlessState1:
		return state != 1
	case UpToState1:
		return state <= 1
	default:
		return true
	}
}

// Bank is one contiguous range of logical registers read as a single block.
// Logical register N lands in store slot N+1.
type Bank struct {
	Name     string
	Start    uint16 // first logical register
	End      uint16 // last logical register (inclusive)
	Schedule Schedule
}

// Len is the number of logical registers in the bank.
func (b Bank) Len() int { return int(b.End-b.Start) + 1 }

// FirstSlot is the store slot receiving logical register Start.
func (b Bank) FirstSlot() int { return int(b.Start) + 1 }

// Banks lists every bank in device order. Reads are issued in this order.
var Banks = []Bank{
	{Name: "main", Start: 0, End: 43, Schedule: EveryTick},
	{Name: "A", Start: 50, End: 55, Schedule: UnlessState1},
	{Name: "secondary", Start: 100, End: 134, Schedule: EveryTick},
	{Name: "B", Start: 167, End: 197, Schedule: UpToState1},
}
