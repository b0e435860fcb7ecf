// Package story holds the story memory: the profile chosen before play and
// the ordered, append-only history of turns that is replayed into prompts
// and persisted between sessions.
package story

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrTurnOrder      = errors.New("turn number out of order")
	ErrEmptyAction    = errors.New("turn action is empty")
	ErrProfileLocked  = errors.New("profile cannot change after the first turn")
	ErrUnknownProfile = errors.New("unknown profile kind")
	ErrMalformedSave  = errors.New("malformed save")
)

var now = func() time.Time { return time.Now().UTC() }

// Profile is the character, setting and motivation of a story.
type Profile struct {
	Character  Choice `json:"character" yaml:"character"`
	Setting    Choice `json:"setting" yaml:"setting"`
	Motivation Choice `json:"motivation" yaml:"motivation"`
}

// Memory is the full ordered history of a session. Turns are only ever
// appended; nothing handed out by Memory aliases its internal slices.
type Memory struct {
	id        string
	name      string
	createdAt time.Time
	updatedAt time.Time
	profile   Profile
	turns     []Turn
	questions []Question
	version   int
	history   []Revision
}

// New returns an empty memory with a fresh ID.
func New(name string) *Memory {
	ts := now()
	return &Memory{
		id:        uuid.NewString(),
		name:      name,
		createdAt: ts,
		updatedAt: ts,
	}
}

func (m *Memory) ID() string           { return m.id }
func (m *Memory) Name() string         { return m.name }
func (m *Memory) CreatedAt() time.Time { return m.createdAt }
func (m *Memory) UpdatedAt() time.Time { return m.updatedAt }
func (m *Memory) Version() int         { return m.version }
func (m *Memory) Len() int             { return len(m.turns) }
func (m *Memory) NextTurn() int        { return len(m.turns) + 1 }
func (m *Memory) Profile() Profile     { return m.profile }

// SetProfile fills one profile slot. Slots are fixed once play has begun.
func (m *Memory) SetProfile(kind ProfileKind, c Choice) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownProfile, kind)
	}
	if len(m.turns) > 0 {
		return ErrProfileLocked
	}
	switch kind {
	case ProfileCharacter:
		m.profile.Character = c
	case ProfileSetting:
		m.profile.Setting = c
	case ProfileMotivation:
		m.profile.Motivation = c
	}
	m.touch(string(kind))
	return nil
}

// ProfileChoice returns the choice stored in one profile slot.
func (m *Memory) ProfileChoice(kind ProfileKind) (Choice, bool) {
	var c Choice
	switch kind {
	case ProfileCharacter:
		c = m.profile.Character
	case ProfileSetting:
		c = m.profile.Setting
	case ProfileMotivation:
		c = m.profile.Motivation
	default:
		return Choice{}, false
	}
	return c, c != Choice{}
}

// AppendTurn adds t as the next turn. A zero Number means "next"; any other
// number must be exactly one past the last stored turn.
func (m *Memory) AppendTurn(t Turn) (Turn, error) {
	next := len(m.turns) + 1
	if t.Number == 0 {
		t.Number = next
	}
	if t.Number != next {
		return Turn{}, fmt.Errorf("%w: got %d, want %d", ErrTurnOrder, t.Number, next)
	}
	if strings.TrimSpace(t.Action) == "" {
		return Turn{}, ErrEmptyAction
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now()
	}
	stored := t.clone()
	m.turns = append(m.turns, stored)
	m.touch("turns")
	return stored.clone(), nil
}

// Turns returns a copy of the turn history in order.
func (m *Memory) Turns() []Turn {
	out := make([]Turn, len(m.turns))
	for i, t := range m.turns {
		out[i] = t.clone()
	}
	return out
}

// Turn returns turn n (1-based).
func (m *Memory) Turn(n int) (Turn, bool) {
	if n < 1 || n > len(m.turns) {
		return Turn{}, false
	}
	return m.turns[n-1].clone(), true
}

// LastTurn returns the most recent turn, if any.
func (m *Memory) LastTurn() (Turn, bool) {
	return m.Turn(len(m.turns))
}

// Plot is the running summary after the last turn.
func (m *Memory) Plot() string {
	if len(m.turns) == 0 {
		return ""
	}
	return m.turns[len(m.turns)-1].Plot
}

// Prose is the full story after the last turn.
func (m *Memory) Prose() string {
	if len(m.turns) == 0 {
		return ""
	}
	return m.turns[len(m.turns)-1].Prose
}

// RecordQuestion stores a question asked after the current turn.
func (m *Memory) RecordQuestion(question, answer string) Question {
	q := Question{
		AfterTurn: len(m.turns),
		Question:  question,
		Answer:    answer,
		AskedAt:   now(),
	}
	m.questions = append(m.questions, q)
	m.touch("user_questions")
	return q
}

// Questions returns a copy of all recorded questions.
func (m *Memory) Questions() []Question {
	out := make([]Question, len(m.questions))
	copy(out, m.questions)
	return out
}

// History returns the change log.
func (m *Memory) History() []Revision {
	out := make([]Revision, len(m.history))
	copy(out, m.history)
	return out
}

func (m *Memory) touch(key string) {
	ts := now()
	m.version++
	m.updatedAt = ts
	m.history = append(m.history, Revision{Version: m.version, Key: key, At: ts})
}

// Snapshot is the exported, persisted form of a Memory.
type Snapshot struct {
	ID        string     `json:"id" yaml:"id"`
	Name      string     `json:"name" yaml:"name"`
	CreatedAt time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" yaml:"updated_at"`
	Profile   Profile    `json:"profile" yaml:"profile"`
	Turns     []Turn     `json:"turns" yaml:"turns"`
	Questions []Question `json:"questions" yaml:"questions"`
	Version   int        `json:"version" yaml:"version"`
	History   []Revision `json:"history" yaml:"history"`
}

// Snapshot copies the memory into its persisted form.
func (m *Memory) Snapshot() Snapshot {
	return Snapshot{
		ID:        m.id,
		Name:      m.name,
		CreatedAt: m.createdAt,
		UpdatedAt: m.updatedAt,
		Profile:   m.profile,
		Turns:     m.Turns(),
		Questions: m.Questions(),
		Version:   m.version,
		History:   m.History(),
	}
}

// Restore validates s and builds a new Memory from it. On error nothing is
// returned, so a bad save can never leak into a running session.
func Restore(s Snapshot) (*Memory, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	m := &Memory{
		id:        s.ID,
		name:      s.Name,
		createdAt: s.CreatedAt,
		updatedAt: s.UpdatedAt,
		profile:   s.Profile,
		turns:     make([]Turn, 0, len(s.Turns)),
		questions: make([]Question, len(s.Questions)),
		version:   s.Version,
		history:   make([]Revision, len(s.History)),
	}
	for _, t := range s.Turns {
		m.turns = append(m.turns, t.clone())
	}
	copy(m.questions, s.Questions)
	copy(m.history, s.History)
	return m, nil
}

// Validate checks the invariants a persisted memory must hold.
func (s Snapshot) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrMalformedSave)
	}
	for i, t := range s.Turns {
		if t.Number != i+1 {
			return fmt.Errorf("%w: turn %d at position %d", ErrMalformedSave, t.Number, i+1)
		}
		if strings.TrimSpace(t.Action) == "" {
			return fmt.Errorf("%w: turn %d has no action", ErrMalformedSave, t.Number)
		}
	}
	for _, q := range s.Questions {
		if q.AfterTurn < 0 || q.AfterTurn > len(s.Turns) {
			return fmt.Errorf("%w: question after unknown turn %d", ErrMalformedSave, q.AfterTurn)
		}
	}
	last := 0
	for _, r := range s.History {
		if r.Version <= last {
			return fmt.Errorf("%w: revision %d not increasing", ErrMalformedSave, r.Version)
		}
		last = r.Version
	}
	if s.Version < last {
		return fmt.Errorf("%w: version %d behind history %d", ErrMalformedSave, s.Version, last)
	}
	return nil
}
