package keyword

// LevenshteinDistance returns the minimum number of single-rune insertions,
// deletions, or substitutions turning a into b.
func LevenshteinDistance(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	// Two rolling rows of the edit matrix.
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// WithinDistance reports whether LevenshteinDistance(a, b) <= maxDist,
// skipping the matrix when the rune counts alone rule it out.
func WithinDistance(a, b string, maxDist int) (int, bool) {
	la, lb := len([]rune(a)), len([]rune(b))
	if diff := la - lb; diff > maxDist || -diff > maxDist {
		return 0, false
	}
	d := LevenshteinDistance(a, b)
	return d, d <= maxDist
}
