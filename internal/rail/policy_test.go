package rail

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var allPolicies = []SeatPolicy{GeneralFirst, GeneralOnly, SpecialFirst, SpecialOnly}

func TestIsReservableNoSeatsClosedWaitingList(t *testing.T) {
	c := Candidate{}
	for _, p := range allPolicies {
		assert.False(t, IsReservable(c, p), p.String())
	}
}

func TestIsReservableNoSeatsOpenWaitingList(t *testing.T) {
	c := Candidate{WaitingList: true}
	for _, p := range allPolicies {
		assert.True(t, IsReservable(c, p), p.String())
	}
}

func TestIsReservableFirstPoliciesAcceptAnySeat(t *testing.T) {
	for _, c := range []Candidate{
		{GeneralSeat: true},
		{SpecialSeat: true},
		{GeneralSeat: true, SpecialSeat: true},
		{SpecialSeat: true, WaitingList: true},
	} {
		assert.True(t, IsReservable(c, GeneralFirst), "%+v", c)
		assert.True(t, IsReservable(c, SpecialFirst), "%+v", c)
	}
}

func TestIsReservableOnlyPolicies(t *testing.T) {
	tests := []struct {
		name    string
		c       Candidate
		general bool
		special bool
	}{
		{"general only seat", Candidate{GeneralSeat: true}, true, false},
		{"special only seat", Candidate{SpecialSeat: true}, false, true},
		{"special seat with waiting list", Candidate{SpecialSeat: true, WaitingList: true}, false, true},
		{"general seat with waiting list", Candidate{GeneralSeat: true, WaitingList: true}, true, false},
		{"both", Candidate{GeneralSeat: true, SpecialSeat: true}, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.general, IsReservable(tt.c, GeneralOnly))
			assert.Equal(t, tt.special, IsReservable(tt.c, SpecialOnly))
		})
	}
}

func TestSeatClass(t *testing.T) {
	tests := []struct {
		name        string
		c           Candidate
		p           SeatPolicy
		wantSpecial bool
		wantWaiting bool
	}{
		{"general first picks general", Candidate{GeneralSeat: true, SpecialSeat: true}, GeneralFirst, false, false},
		{"general first falls back to special", Candidate{SpecialSeat: true}, GeneralFirst, true, false},
		{"special first picks special", Candidate{GeneralSeat: true, SpecialSeat: true}, SpecialFirst, true, false},
		{"special first falls back to general", Candidate{GeneralSeat: true}, SpecialFirst, false, false},
		{"special only", Candidate{SpecialSeat: true}, SpecialOnly, true, false},
		{"waiting list general", Candidate{WaitingList: true}, GeneralFirst, false, true},
		{"waiting list special", Candidate{WaitingList: true}, SpecialOnly, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			special, waiting := SeatClass(tt.c, tt.p)
			assert.Equal(t, tt.wantSpecial, special)
			assert.Equal(t, tt.wantWaiting, waiting)
		})
	}
}

func TestParseSeatPolicy(t *testing.T) {
	for _, p := range allPolicies {
		got, err := ParseSeatPolicy(p.String())
		assert.NoError(t, err)
		assert.Equal(t, p, got)
	}
	_, err := ParseSeatPolicy("window")
	assert.Error(t, err)
}
