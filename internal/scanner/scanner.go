// Package scanner implements the frequency-hopping and locking state
// machine that decides which RF channel the receiver samples next.
package scanner

import "math"

// State of the scanner.
type State int

const (
	Scanning State = iota
	Locked
)

func (s State) String() string {
	if s == Locked {
		return "locked"
	}
	return "scanning"
}

// UnlockThreshold is the number of consecutive empty captures on a locked
// channel before the scanner resumes hopping.
const UnlockThreshold = 10

// Channels24GHz lists the 2.4 GHz DroneID channels in Hz, ordered by
// empirical likelihood of carrying a transmission.
var Channels24GHz = []float64{
	2459.5e6,
	2444.5e6,
	2429.5e6,
	2474.5e6,
	2434.5e6,
	2414.5e6,
}

// Channels58GHz lists the 5.8 GHz DroneID channels in Hz.
var Channels58GHz = []float64{
	5721.5e6, 5731.5e6, 5741.5e6, 5756.5e6, 5761.5e6,
	5771.5e6, 5786.5e6, 5801.5e6, 5816.5e6, 5831.5e6,
}

// Scanner cycles through a channel plan and locks onto a channel once a
// detection is reported there. Scanner is not safe for concurrent use;
// every goroutine that needs one owns its own instance.
type Scanner struct {
	channels []float64

	state     State
	locked    float64
	cursor    int
	emptyRuns int
}

// New creates a scanner over the 2.4 GHz plan, optionally extended with
// the 5.8 GHz plan.
func New(band24Only bool) *Scanner {
	channels := append([]float64(nil), Channels24GHz...)
	if !band24Only {
		channels = append(channels, Channels58GHz...)
	}
	return &Scanner{channels: channels}
}

// State returns the current scanner state.
func (s *Scanner) State() State { return s.state }

// LockedFrequency returns the locked channel in Hz, or 0 while scanning.
func (s *Scanner) LockedFrequency() float64 { return s.locked }

// EmptyScans returns the consecutive empty-capture count while locked.
func (s *Scanner) EmptyScans() int { return s.emptyRuns }

// Channels returns a copy of the active channel plan.
func (s *Scanner) Channels() []float64 {
	return append([]float64(nil), s.channels...)
}

// Lock pins the scanner to the given channel and clears the empty-capture
// counter.
func (s *Scanner) Lock(freq float64) {
	s.state = Locked
	s.locked = freq
	s.emptyRuns = 0
}

// Unlock resumes scanning without rewinding the channel cursor.
func (s *Scanner) Unlock() {
	s.state = Scanning
	s.locked = 0
	s.emptyRuns = 0
}

// Reset returns the scanner to its initial state, rewinding the cursor to
// the first channel.
func (s *Scanner) Reset() {
	s.Unlock()
	s.cursor = 0
}

// RecordDetection feeds one capture outcome into the state machine. While
// locked, a detection clears the empty-capture counter and a miss
// increments it; UnlockThreshold consecutive misses release the lock.
// While scanning the outcome has no effect.
func (s *Scanner) RecordDetection(detected bool) {
	if s.state != Locked {
		return
	}
	if detected {
		s.emptyRuns = 0
		return
	}
	s.emptyRuns++
	if s.emptyRuns >= UnlockThreshold {
		s.Unlock()
	}
}

// NextChannel returns the channel to sample next: the locked channel
// while locked, otherwise the channel under the cursor, advancing the
// cursor circularly.
func (s *Scanner) NextChannel() float64 {
	if s.state == Locked {
		return s.locked
	}
	freq := s.channels[s.cursor]
	s.cursor = (s.cursor + 1) % len(s.channels)
	return freq
}

// SampleCount returns the number of samples covering duration seconds at
// the given rate.
func SampleCount(duration, rate float64) int {
	return int(math.Floor(duration * rate))
}
