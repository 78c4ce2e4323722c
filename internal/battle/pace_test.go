package battle

import "testing"

func TestFramesToRun(t *testing.T) {
	for _, tc := range []struct {
		dtick int32
		delay uint32
		want  int
	}{
		{0, 3, 1},
		{3, 3, 1},
		{4, 3, 0},  // leading: stall
		{-3, 3, 1},
		{-4, 3, 2}, // trailing: catch up
		{100, 3, 0},
		{-100, 3, 2},
	} {
		if got := FramesToRun(tc.dtick, tc.delay); got != tc.want {
			t.Errorf("FramesToRun(%d, %d) = %d, want %d", tc.dtick, tc.delay, got, tc.want)
		}
	}
}

func TestResultString(t *testing.T) {
	if ResultWin.String() != "win" || ResultLoss.String() != "loss" || ResultDraw.String() != "draw" {
		t.Fatal("result strings wrong")
	}
	if Result(0).String() != "unknown" {
		t.Fatal("zero result should be unknown")
	}
}
