package annotate

import (
	"errors"
	"fmt"

	"github.com/ajmal017/piker/internal/cursor"

	"github.com/sirupsen/logrus"
)

// Errors surfaced by level-line operations
var (
	ErrNotDraggable  = errors.New("level line is not draggable")
	ErrUnknownHandle = errors.New("unknown level line handle")
)

// LevelLine is a horizontal price-level indicator with an attached
// axis label
type LevelLine struct {
	Level     float64
	Draggable bool
	Label     *LevelLabel
}

// Set owns the level lines of one panel and maps levels to screen
// space through the panel's transform. Lines are created on demand
// and destroyed when their owning indicator is removed.
type Set struct {
	lines     map[int]*LevelLine
	next      int
	transform cursor.Transform
	metrics   FontMetrics
	fontSize  float64
	logger    *logrus.Entry
}

// NewSet creates a level-line set over a panel transform
func NewSet(tr cursor.Transform, fontSize float64, metrics FontMetrics, logger *logrus.Logger) *Set {
	if metrics == nil {
		metrics = DefaultFontMetrics
	}
	return &Set{
		lines:     make(map[int]*LevelLine),
		next:      1,
		transform: tr,
		metrics:   metrics,
		fontSize:  fontSize,
		logger:    logger.WithField("component", "level-lines"),
	}
}

// CreateLevelLine adds a styled horizontal line at level and returns
// its handle. The label footprint is measured once against worstCase.
func (s *Set) CreateLevelLine(level float64, draggable bool, format Format, worstCase string) (int, error) {
	if worstCase == "" {
		worstCase = format(level)
	}

	label, err := NewLevelLabel(format, worstCase, s.fontSize, s.metrics, OrientBottom, OrientLeft)
	if err != nil {
		return 0, fmt.Errorf("failed to create level label: %w", err)
	}

	line := &LevelLine{
		Level:     level,
		Draggable: draggable,
		Label:     label,
	}
	line.Label.Update(s.axisY(level), level)

	handle := s.next
	s.next++
	s.lines[handle] = line

	return handle, nil
}

// Get returns the level line for a handle
func (s *Set) Get(handle int) (*LevelLine, bool) {
	line, ok := s.lines[handle]
	return line, ok
}

// Drag moves a draggable level line to newLevel, recomputing its
// label text and offsets
func (s *Set) Drag(handle int, newLevel float64) error {
	line, ok := s.lines[handle]
	if !ok {
		return fmt.Errorf("dragging level line %d: %w", handle, ErrUnknownHandle)
	}
	if !line.Draggable {
		return fmt.Errorf("dragging level line %d: %w", handle, ErrNotDraggable)
	}

	line.Level = newLevel
	line.Label.Update(s.axisY(newLevel), newLevel)
	return nil
}

// Remove destroys a level line and its label
func (s *Set) Remove(handle int) {
	delete(s.lines, handle)
}

// Len returns the number of live level lines
func (s *Set) Len() int {
	return len(s.lines)
}

// axisY maps a price level to the axis-local screen y
func (s *Set) axisY(level float64) float64 {
	_, sy := s.transform.FromData(0, level)
	return sy
}
