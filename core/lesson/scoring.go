package lesson

// ScoreSettings carries the one grade-settings weight the scoring formula
// consumes.
type ScoreSettings struct {
	PointsSinging int
}

// ComputePoints derives a homework check's point total from its component
// scores and the grade's live settings. It is pure: same inputs, same output.
//
// When every score field is zero and singing was not performed, the result is
// forced to 0. Today that coincides with the natural sum; the explicit branch
// keeps the "nothing was done" contract intact should future components add
// unconditional terms to the formula.
func ComputePoints(chk HomeworkCheck, settings ScoreSettings) int {
	goldenVersePoints := chk.GoldenVerse1 + chk.GoldenVerse2 + chk.GoldenVerse3

	if goldenVersePoints == 0 && chk.TestScore == 0 && chk.NotebookScore == 0 && !chk.Singing {
		return 0
	}

	total := goldenVersePoints + chk.TestScore + chk.NotebookScore
	if chk.Singing {
		total += settings.PointsSinging
	}
	return total
}
