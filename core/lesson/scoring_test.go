package lesson

import "testing"

func TestComputePoints(t *testing.T) {
	tests := []struct {
		name     string
		chk      HomeworkCheck
		settings ScoreSettings
		want     int
	}{
		{name: "all empty, no singing"},
		{
			name:     "all empty, no singing, nonzero singing weight",
			settings: ScoreSettings{PointsSinging: 5},
		},
		{
			name:     "singing only",
			chk:      HomeworkCheck{Singing: true},
			settings: ScoreSettings{PointsSinging: 5},
			want:     5,
		},
		{
			name: "singing true with zero weight",
			chk:  HomeworkCheck{Singing: true},
		},
		{
			name: "verses only",
			chk:  HomeworkCheck{GoldenVerse1: 2, GoldenVerse2: 1},
			want: 3,
		},
		{
			name: "test and notebook",
			chk:  HomeworkCheck{TestScore: 8, NotebookScore: 5},
			want: 13,
		},
		{
			name:     "full check",
			chk:      HomeworkCheck{GoldenVerse1: 2, GoldenVerse2: 2, GoldenVerse3: 1, TestScore: 8, NotebookScore: 5, Singing: true},
			settings: ScoreSettings{PointsSinging: 5},
			want:     23,
		},
		{
			name:     "settings change the result for the same scores",
			chk:      HomeworkCheck{GoldenVerse1: 1, Singing: true},
			settings: ScoreSettings{PointsSinging: 10},
			want:     11,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputePoints(tt.chk, tt.settings); got != tt.want {
				t.Errorf("ComputePoints() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestComputePointsIsPure(t *testing.T) {
	chk := HomeworkCheck{GoldenVerse1: 2, TestScore: 4, Singing: true}
	settings := ScoreSettings{PointsSinging: 3}

	first := ComputePoints(chk, settings)
	for i := 0; i < 100; i++ {
		if got := ComputePoints(chk, settings); got != first {
			t.Fatalf("ComputePoints() = %d on call %d, want %d", got, i+2, first)
		}
	}
}
