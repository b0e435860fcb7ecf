// Package prompt renders the story memory into the prompts sent to the model.
package prompt

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/atmb4u/gamegirl/internal/story"
)

const (
	defaultRecentActions = 5
	notChosen            = "(not chosen yet)"
	trimMarker           = "… "
)

// Builder renders prompts. The zero value is not usable; call NewBuilder.
type Builder struct {
	counter       TokenCounter
	proseBudget   int
	recentActions int
}

// Option configures a Builder.
type Option func(*Builder)

// WithProseBudget caps the prose replayed into a prompt at budget tokens as
// measured by counter. The oldest text is dropped first.
func WithProseBudget(counter TokenCounter, budget int) Option {
	return func(b *Builder) {
		b.counter = counter
		b.proseBudget = budget
	}
}

// WithRecentActions sets how many past turns are listed in prompts.
func WithRecentActions(n int) Option {
	return func(b *Builder) { b.recentActions = n }
}

func NewBuilder(opts ...Option) *Builder {
	b := &Builder{recentActions: defaultRecentActions}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type actionView struct {
	Number      int
	Action      string
	Consequence string
}

type view struct {
	Context    string
	Option     string
	Character  string
	Setting    string
	Motivation string
	Plot       string
	Prose      string
	Actions    []actionView
	Question   string
	Action     string
}

// InitialOptions asks for three options for one profile slot.
func (b *Builder) InitialOptions(context string, kind story.ProfileKind) (string, error) {
	if strings.TrimSpace(context) == "" {
		context = "(a brand new story)"
	}
	return render(initialOptionsTmpl, view{Context: context, Option: string(kind)})
}

// ProfileContext describes the profile chosen so far, used as context when
// generating the remaining profile options.
func ProfileContext(m *story.Memory) string {
	var lines []string
	for _, kind := range story.ProfileKinds {
		if c, ok := m.ProfileChoice(kind); ok {
			lines = append(lines, fmt.Sprintf("%s: %s", titleCase(string(kind)), c.Label()))
		}
	}
	return strings.Join(lines, "\n")
}

// NextChoices asks for the three choices of the next turn.
func (b *Builder) NextChoices(m *story.Memory) (string, error) {
	return render(nextChoicesTmpl, b.memoryView(m))
}

// Question asks the model to answer a player question about the story.
func (b *Builder) Question(m *story.Memory, question string) (string, error) {
	v := b.memoryView(m)
	v.Question = question
	v.Actions = nil
	return render(questionTmpl, v)
}

// Consequence asks for what follows the player's action.
func (b *Builder) Consequence(m *story.Memory, action string) (string, error) {
	v := b.memoryView(m)
	v.Action = action
	return render(consequenceTmpl, v)
}

func (b *Builder) memoryView(m *story.Memory) view {
	return view{
		Character:  profileLabel(m, story.ProfileCharacter),
		Setting:    profileLabel(m, story.ProfileSetting),
		Motivation: profileLabel(m, story.ProfileMotivation),
		Plot:       m.Plot(),
		Prose:      b.FitProse(m.Prose()),
		Actions:    b.recent(m),
	}
}

func (b *Builder) recent(m *story.Memory) []actionView {
	if b.recentActions <= 0 {
		return nil
	}
	turns := m.Turns()
	if len(turns) > b.recentActions {
		turns = turns[len(turns)-b.recentActions:]
	}
	out := make([]actionView, 0, len(turns))
	for _, t := range turns {
		out = append(out, actionView{Number: t.Number, Action: t.Action, Consequence: t.Consequence})
	}
	return out
}

// FitProse trims prose from the front until it fits the token budget,
// cutting on paragraph or sentence boundaries where possible.
func (b *Builder) FitProse(prose string) string {
	if b.counter == nil || b.proseBudget <= 0 || b.counter.Count(prose) <= b.proseBudget {
		return prose
	}
	last := prose
	if paras := strings.Split(prose, "\n\n"); len(paras) > 1 {
		if fit, ok := b.dropLeading(paras, "\n\n"); ok {
			return fit
		}
		last = paras[len(paras)-1]
	}
	sentences := strings.SplitAfter(last, ". ")
	if fit, ok := b.dropLeading(sentences, ""); ok {
		return fit
	}
	tail := []rune(sentences[len(sentences)-1])
	for len(tail) > 0 && b.counter.Count(trimMarker+string(tail)) > b.proseBudget {
		tail = tail[len(tail)/10+1:]
	}
	if len(tail) == 0 {
		return ""
	}
	return trimMarker + string(tail)
}

// dropLeading drops units from the front until the rest, joined by sep,
// fits the budget. The last unit alone is tried too.
func (b *Builder) dropLeading(units []string, sep string) (string, bool) {
	for i := 1; i < len(units); i++ {
		candidate := trimMarker + strings.Join(units[i:], sep)
		if b.counter.Count(candidate) <= b.proseBudget {
			return candidate, true
		}
	}
	return "", false
}

func profileLabel(m *story.Memory, kind story.ProfileKind) string {
	if c, ok := m.ProfileChoice(kind); ok {
		return c.Label()
	}
	return notChosen
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func render(t *template.Template, v view) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, v); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", t.Name(), err)
	}
	return sb.String(), nil
}
