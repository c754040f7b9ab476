package loopback

// schedule alternates between two packet sizes. It advances after each
// accepted send, so a send that would block is retried with the same size.
type schedule struct {
	sizes [2]int
	next  int
}

func newSchedule(a, b int) *schedule {
	return &schedule{sizes: [2]int{a, b}}
}

// Current returns the size to use in the current cycle.
func (s *schedule) Current() int {
	return s.sizes[s.next]
}

// Advance moves to the other size.
func (s *schedule) Advance() {
	s.next ^= 1
}

// Fits reports whether |n| is one of the two sizes.
func (s *schedule) Fits(n int) bool {
	return n == s.sizes[0] || n == s.sizes[1]
}

// Max returns the larger of the two sizes.
func (s *schedule) Max() int {
	return max(s.sizes[0], s.sizes[1])
}

// Average returns the mean of the two sizes.
func (s *schedule) Average() float64 {
	return float64(s.sizes[0]+s.sizes[1]) / 2
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
