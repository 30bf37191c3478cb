// Package study drives single-card review of one collection: a pure
// navigation state machine, the command dispatch that feeds it, and the
// viewer that loads cards for the current collection id.
package study

import "github.com/atinyakov/GophCards/internal/models"

// Direction is the last navigation direction; it only affects rendering.
type Direction int

const (
	// DirectionNone means no navigation has happened yet.
	DirectionNone Direction = 0
	// DirectionForward is set by Next.
	DirectionForward Direction = 1
	// DirectionBackward is set by Previous and Restart.
	DirectionBackward Direction = -1
)

func (d Direction) String() string {
	switch d {
	case DirectionForward:
		return "forward"
	case DirectionBackward:
		return "back"
	default:
		return "none"
	}
}

// Machine is the review state over a fixed, ordered card sequence.
// With a non-empty sequence the index always stays in [0, len-1], and any
// index change turns the card face down. On an empty sequence every
// operation is a no-op.
//
// Machine is not safe for concurrent use; Viewer serializes access.
type Machine struct {
	cards   []models.Flashcard
	index   int
	flipped bool
	dir     Direction
}

// NewMachine returns a machine positioned on the first card.
func NewMachine(cards []models.Flashcard) *Machine {
	cp := make([]models.Flashcard, len(cards))
	copy(cp, cards)
	return &Machine{cards: cp}
}

// Flip toggles the face of the current card.
func (m *Machine) Flip() {
	if len(m.cards) == 0 {
		return
	}
	m.flipped = !m.flipped
}

// Next advances one card. It reports false at the last card.
func (m *Machine) Next() bool {
	if m.index >= len(m.cards)-1 {
		return false
	}
	m.index++
	m.flipped = false
	m.dir = DirectionForward
	return true
}

// Previous goes back one card. It reports false at the first card.
func (m *Machine) Previous() bool {
	if m.index <= 0 {
		return false
	}
	m.index--
	m.flipped = false
	m.dir = DirectionBackward
	return true
}

// Restart returns to the first card, face down.
func (m *Machine) Restart() {
	if len(m.cards) == 0 {
		return
	}
	m.index = 0
	m.flipped = false
	m.dir = DirectionBackward
}

// Apply runs cmd and reports whether it was recognised.
func (m *Machine) Apply(cmd Command) bool {
	switch cmd {
	case CmdFlip:
		m.Flip()
	case CmdNext:
		m.Next()
	case CmdPrevious:
		m.Previous()
	case CmdRestart:
		m.Restart()
	default:
		return false
	}
	return true
}

// Len is the number of cards.
func (m *Machine) Len() int { return len(m.cards) }

// Index is the current position.
func (m *Machine) Index() int { return m.index }

// Flipped reports whether the answer side is showing.
func (m *Machine) Flipped() bool { return m.flipped }

// Direction is the direction of the last index change.
func (m *Machine) Direction() Direction { return m.dir }

// Card returns the current card.
func (m *Machine) Card() (models.Flashcard, bool) {
	if len(m.cards) == 0 {
		return models.Flashcard{}, false
	}
	return m.cards[m.index], true
}

// Progress is (index+1)/len*100, or 0 for an empty sequence.
func (m *Machine) Progress() float64 {
	if len(m.cards) == 0 {
		return 0
	}
	return float64(m.index+1) / float64(len(m.cards)) * 100
}
