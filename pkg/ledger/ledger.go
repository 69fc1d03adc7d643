package ledger

import (
	"sync"
	"time"

	"github.com/OFFIS-RIT/bloodnet/backend/pkg/alloc"
)

// Status of a reservation entry. Only StatusReserved is produced today.
type Status string

const StatusReserved Status = "reserved"

// Reservation records a blood unit committed to an in-flight transfer.
type Reservation struct {
	UnitID    string    `json:"unit_id"`
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Ledger is the in-memory record of active reservations. All methods are
// safe for concurrent use.
type Ledger struct {
	mu      sync.RWMutex
	entries []Reservation
	units   map[string]int

	now func() time.Time
}

func New() *Ledger {
	return &Ledger{
		units: make(map[string]int),
		now:   time.Now,
	}
}

// Reserve appends one entry per transfer. It does not check for duplicates;
// callers only pass units that were unreserved when they were discovered.
func (l *Ledger) Reserve(transfers []alloc.Transfer) []Reservation {
	ids := make([]string, len(transfers))
	for i, t := range transfers {
		ids[i] = t.UnitID
	}
	return l.ReserveUnits(ids...)
}

// ReserveUnits appends one entry per unit id.
func (l *Ledger) ReserveUnits(unitIDs ...string) []Reservation {
	l.mu.Lock()
	defer l.mu.Unlock()

	ts := l.now()
	added := make([]Reservation, 0, len(unitIDs))
	for _, id := range unitIDs {
		r := Reservation{UnitID: id, Status: StatusReserved, Timestamp: ts}
		l.entries = append(l.entries, r)
		l.units[id]++
		added = append(added, r)
	}
	return added
}

// IsReserved reports whether unitID has an active reservation.
func (l *Ledger) IsReserved(unitID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.units[unitID] > 0
}

// ActiveReservations returns a copy of all entries in reservation order.
func (l *Ledger) ActiveReservations() []Reservation {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Reservation, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of active entries.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Release removes every entry for unitID and reports whether one existed.
func (l *Ledger) Release(unitID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.units[unitID] == 0 {
		return false
	}
	kept := l.entries[:0]
	for _, r := range l.entries {
		if r.UnitID != unitID {
			kept = append(kept, r)
		}
	}
	l.entries = kept
	delete(l.units, unitID)
	return true
}

// Clear removes all entries.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = nil
	l.units = make(map[string]int)
}
