package session

import (
	"testing"

	"pongview/protocol"
)

func snap(vx float64, s1, s2 int) *protocol.Snapshot {
	return &protocol.Snapshot{
		State:        protocol.PhasePlaying,
		Ball:         &protocol.Ball{X: 100, Y: 200, Radius: 8, VX: vx},
		Player1Score: s1,
		Player2Score: s2,
	}
}

func TestDiff(t *testing.T) {
	noBall := &protocol.Snapshot{State: protocol.PhasePlaying, Player1Score: 1}
	cases := []struct {
		name      string
		prev, cur *protocol.Snapshot
		want      Events
	}{
		{"no previous", nil, snap(3, 0, 0), Events{}},
		{"same direction", snap(3, 0, 0), snap(4, 0, 0), Events{}},
		{"left to right", snap(-3, 0, 0), snap(4, 0, 0), Events{Collision: true, Toward: protocol.SidePlayer2}},
		{"right to left", snap(3, 0, 0), snap(-3, 0, 0), Events{Collision: true, Toward: protocol.SidePlayer1}},
		{"stopped", snap(3, 0, 0), snap(0, 0, 0), Events{}},
		{"serve from rest counts as sign change", snap(0, 0, 0), snap(3, 0, 0), Events{Collision: true, Toward: protocol.SidePlayer2}},
		{"serve toward player1", snap(0, 0, 0), snap(-2, 0, 0), Events{Collision: true, Toward: protocol.SidePlayer1}},
		{"score", snap(3, 0, 0), snap(3, 1, 0), Events{Scored: true}},
		{"score and flip", snap(3, 0, 0), snap(-3, 0, 1), Events{Collision: true, Toward: protocol.SidePlayer1, Scored: true}},
		{"score reset", snap(3, 5, 2), snap(3, 0, 0), Events{Scored: true}},
		{"missing current ball", snap(3, 0, 0), noBall, Events{}},
		{"missing previous ball", noBall, snap(-3, 4, 0), Events{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Diff(tc.prev, tc.cur); got != tc.want {
				t.Fatalf("Diff = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestDiffAlternatingSequence(t *testing.T) {
	vxs := []float64{3, -3, 2, -5, 5, 1, -1}
	flips := 0
	var prev *protocol.Snapshot
	for _, vx := range vxs {
		cur := snap(vx, 0, 0)
		if Diff(prev, cur).Collision {
			flips++
		}
		prev = cur
	}
	if flips != 5 {
		t.Fatalf("flips = %d, want 5", flips)
	}
}
