package logger

import (
	"strconv"
	"strings"
	"sync"
)

// ratioSampler lets through num out of every den calls. A zero ratio lets everything through.
type ratioSampler struct {
	mu       sync.Mutex
	num, den int
	seen     int
}

func newRatioSampler(num, den int) *ratioSampler {
	s := &ratioSampler{}
	s.Set(num, den)
	return s
}

func (s *ratioSampler) Set(num, den int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = 0
	if num <= 0 || den <= 0 {
		s.num, s.den = 0, 0
		return
	}
	s.num, s.den = min(num, den), den
}

func (s *ratioSampler) Allow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.den == 0 {
		return true
	}
	s.seen = s.seen%s.den + 1
	return s.seen <= s.num
}

// parseRatio accepts "n/d" or a bare "d" meaning 1/d. Invalid input yields 0/0.
func parseRatio(raw string) (int, int) {
	raw = strings.TrimSpace(raw)
	if a, b, ok := strings.Cut(raw, "/"); ok {
		num, err1 := strconv.Atoi(strings.TrimSpace(a))
		den, err2 := strconv.Atoi(strings.TrimSpace(b))
		if err1 != nil || err2 != nil {
			return 0, 0
		}
		return num, den
	}
	den, err := strconv.Atoi(raw)
	if err != nil || den <= 0 {
		return 0, 0
	}
	return 1, den
}
