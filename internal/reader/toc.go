package reader

import (
	"sync"
	"time"
)

// Chapter is one entry of a document's chapter list.
type Chapter struct {
	Title   string
	Address Address
}

// Stamp is a bookmark creation time in Unix nanoseconds. Stamps handed out by
// one Stamper are strictly increasing, so they double as bookmark keys.
type Stamp int64

func (s Stamp) Time() time.Time { return time.Unix(0, int64(s)) }

// Bookmark marks a position the user wants to come back to.
type Bookmark struct {
	Address   Address
	Title     string
	CreatedAt Stamp
}

// Stamper issues unique Stamps from a clock. Two calls within the same clock
// tick still get distinct values.
type Stamper struct {
	mu   sync.Mutex
	now  func() time.Time
	last Stamp
}

// NewStamper creates a Stamper reading the given clock (time.Now when nil).
func NewStamper(now func() time.Time) *Stamper {
	if now == nil {
		now = time.Now
	}
	return &Stamper{now: now}
}

// Next returns a stamp greater than every stamp returned before.
func (s *Stamper) Next() Stamp {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Stamp(s.now().UnixNano())
	if st <= s.last {
		st = s.last + 1
	}
	s.last = st
	return st
}
