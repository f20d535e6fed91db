package pose

// DefaultMatchThreshold is the similarity a pose must exceed to count as matched.
const DefaultMatchThreshold = 0.8

// IsMatch reports whether similarity is strictly above threshold.
func IsMatch(similarity, threshold float64) bool {
	return similarity > threshold
}

// Debouncer turns a stream of similarity scores into a stable matched flag.
// The flag rises after Rise consecutive scores above Threshold and clears
// after Fall consecutive scores at or below it. Rise and Fall of 1 behave
// like IsMatch. Debouncer is a value type; Observe returns the next state.
type Debouncer struct {
	Threshold float64
	Rise      int
	Fall      int

	above   int
	below   int
	matched bool
}

// NewDebouncer returns a Debouncer requiring n consecutive evaluations in
// either direction.
func NewDebouncer(threshold float64, n int) Debouncer {
	if n < 1 {
		n = 1
	}
	return Debouncer{Threshold: threshold, Rise: n, Fall: n}
}

// Observe feeds one similarity score.
func (d Debouncer) Observe(similarity float64) Debouncer {
	if IsMatch(similarity, d.Threshold) {
		d.below = 0
		d.above++
		if !d.matched && d.above >= max(d.Rise, 1) {
			d.matched = true
		}
		return d
	}

	d.above = 0
	d.below++
	if d.matched && d.below >= max(d.Fall, 1) {
		d.matched = false
	}
	return d
}

// Matched reports the debounced match flag.
func (d Debouncer) Matched() bool {
	return d.matched
}

// Reset clears the counters and the flag, keeping the configuration.
func (d Debouncer) Reset() Debouncer {
	return Debouncer{Threshold: d.Threshold, Rise: d.Rise, Fall: d.Fall}
}
