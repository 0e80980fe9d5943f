// Package status is the single user-visible error surface of a session. It
// keeps each kind of issue in its own slot and renders one line by priority.
package status

import "sync"

// Level classifies the rendered line.
type Level string

const (
	LevelReady    Level = "ready"
	LevelInfo     Level = "info"
	LevelWarning  Level = "warning"
	LevelError    Level = "error"
	LevelCritical Level = "critical"
)

// MainReport is what one committed main cycle has to say.
type MainReport struct {
	Consistency string
	Municipal   string
	Overlay     string
}

// Snapshot is the rendered board.
type Snapshot struct {
	Line  string `json:"line"`
	Level Level  `json:"level"`

	Failure     string `json:"failure,omitempty"`
	Consistency string `json:"consistency,omitempty"`
	Municipal   string `json:"municipal,omitempty"`
	Overlay     string `json:"overlay,omitempty"`
	Points      string `json:"points,omitempty"`
	Notice      string `json:"notice,omitempty"`
}

// Board holds the latest message of each slot.
type Board struct {
	mu   sync.RWMutex
	main MainReport

	failure string
	points  string
	notice  string
}

// NewBoard returns an empty (ready) board.
func NewBoard() *Board {
	return &Board{}
}

// SetMain replaces the main-cycle slots and clears a previous failure.
func (b *Board) SetMain(r MainReport) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.main = r
	b.failure = ""
}

// SetFailure records a required-fetch failure. The previous main report is
// kept since nothing new was applied.
func (b *Board) SetFailure(msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failure = msg
}

// SetPoints replaces the points warning; "" clears it.
func (b *Board) SetPoints(msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.points = msg
}

// SetNotice replaces the informational notice; "" clears it.
func (b *Board) SetNotice(msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notice = msg
}

// Line renders the highest-priority message, or "" when ready.
func (b *Board) Line() string {
	return b.Snapshot().Line
}

// Snapshot renders the board.
func (b *Board) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s := Snapshot{
		Failure:     b.failure,
		Consistency: b.main.Consistency,
		Municipal:   b.main.Municipal,
		Overlay:     b.main.Overlay,
		Points:      b.points,
		Notice:      b.notice,
		Level:       LevelReady,
	}
	switch {
	case s.Failure != "":
		s.Line, s.Level = s.Failure, LevelError
	case s.Consistency != "":
		s.Line, s.Level = s.Consistency, LevelCritical
	case s.Municipal != "":
		s.Line, s.Level = s.Municipal, LevelWarning
	case s.Overlay != "":
		s.Line, s.Level = s.Overlay, LevelWarning
	case s.Points != "":
		s.Line, s.Level = s.Points, LevelWarning
	case s.Notice != "":
		s.Line, s.Level = s.Notice, LevelInfo
	}
	return s
}
