package rail

import (
	"fmt"
	"strings"
)

// SeatPolicy picks which seat classes qualify a candidate.
type SeatPolicy int

const (
	GeneralFirst SeatPolicy = iota
	GeneralOnly
	SpecialFirst
	SpecialOnly
)

func (p SeatPolicy) String() string {
	switch p {
	case GeneralFirst:
		return "general-first"
	case GeneralOnly:
		return "general-only"
	case SpecialFirst:
		return "special-first"
	case SpecialOnly:
		return "special-only"
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

func ParseSeatPolicy(s string) (SeatPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "general-first", "general_first", "":
		return GeneralFirst, nil
	case "general-only", "general_only":
		return GeneralOnly, nil
	case "special-first", "special_first":
		return SpecialFirst, nil
	case "special-only", "special_only":
		return SpecialOnly, nil
	}
	return 0, fmt.Errorf("unknown seat policy %q", s)
}

// IsReservable reports whether c can be reserved under p right now.
//
// With no seat at all only the waiting list counts. Both *First policies
// accept any seat here; the class preference is applied by Reserve.
func IsReservable(c Candidate, p SeatPolicy) bool {
	if !c.HasSeat() {
		return c.WaitingList
	}
	switch p {
	case GeneralFirst, SpecialFirst:
		return true
	case GeneralOnly:
		return c.GeneralSeat
	default:
		return c.SpecialSeat
	}
}

// SeatClass resolves the class to request for c under p. special is false
// for a general seat. waiting is true when only the waiting list is open.
func SeatClass(c Candidate, p SeatPolicy) (special, waiting bool) {
	if !c.HasSeat() {
		return p == SpecialFirst || p == SpecialOnly, c.WaitingList
	}
	switch p {
	case GeneralFirst:
		return !c.GeneralSeat, false
	case GeneralOnly:
		return false, false
	case SpecialFirst:
		return c.SpecialSeat, false
	default:
		return true, false
	}
}
