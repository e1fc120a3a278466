package selection

const (
	// DistractorCount is how many wrong options accompany the answer.
	DistractorCount = 3
	// FallbackOption is the catch-all choice appended after shuffling,
	// always in last position.
	FallbackOption = "No sé"
	// distractorPlaceholder pads the options when an item carries fewer
	// stored distractors than DistractorCount.
	distractorPlaceholder = "Respuesta no disponible"
)

// Distractors draws n wrong options uniformly from the given candidates.
// Distractor choice is a display concern, not a learning signal, so no
// weighting applies. Short candidate lists are padded with a placeholder.
func (s *Selector) Distractors(candidates []string, n int) []string {
	picked := make([]string, 0, n)
	if len(candidates) >= n {
		perm := s.rng.Perm(len(candidates))
		for _, idx := range perm[:n] {
			picked = append(picked, candidates[idx])
		}
	} else {
		picked = append(picked, candidates...)
		for len(picked) < n {
			picked = append(picked, distractorPlaceholder)
		}
	}
	return picked
}

// BuildOptions shuffles the correct answer in among the distractors and
// appends the catch-all option last, never shuffled into the middle.
func (s *Selector) BuildOptions(correct string, distractors []string) []string {
	options := make([]string, 0, len(distractors)+2)
	options = append(options, distractors...)
	options = append(options, correct)

	s.rng.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})

	return append(options, FallbackOption)
}
