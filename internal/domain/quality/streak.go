package quality

const DefaultStreakWindow = 10

// CountConsecutiveScrap counts the contiguous SCRAP run at the head of newestFirst,
// looking at no more than window entries.
func CountConsecutiveScrap(newestFirst []Disposition, window int) int {
	if window <= 0 {
		window = DefaultStreakWindow
	}

	count := 0
	for i, d := range newestFirst {
		if i >= window || d != DispositionScrap {
			break
		}
		count++
	}
	return count
}
