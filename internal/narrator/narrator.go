// Package narrator turns story memory into model requests and typed replies.
package narrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/atmb4u/gamegirl/internal/llm"
	"github.com/atmb4u/gamegirl/internal/prompt"
	"github.com/atmb4u/gamegirl/internal/story"
)

const maxOptions = 3

var ErrNoOptions = errors.New("model returned no options")

// Generator is the part of llm.Client the narrator needs.
type Generator interface {
	Generate(ctx context.Context, kind llm.Kind, prompt string, out any) error
}

// Narrator produces profile options, turn choices, answers and consequences.
type Narrator struct {
	gen     Generator
	prompts *prompt.Builder
	log     *zap.Logger
}

func New(gen Generator, prompts *prompt.Builder, log *zap.Logger) *Narrator {
	if prompts == nil {
		prompts = prompt.NewBuilder()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Narrator{gen: gen, prompts: prompts, log: log}
}

// InitialOptions offers up to three options for one profile slot, given the
// profile chosen so far.
func (n *Narrator) InitialOptions(ctx context.Context, m *story.Memory, kind story.ProfileKind) ([]story.Choice, error) {
	p, err := n.prompts.InitialOptions(prompt.ProfileContext(m), kind)
	if err != nil {
		return nil, err
	}
	return n.choices(ctx, p, string(kind))
}

// NextChoices offers up to three choices for the next turn.
func (n *Narrator) NextChoices(ctx context.Context, m *story.Memory) ([]story.Choice, error) {
	p, err := n.prompts.NextChoices(m)
	if err != nil {
		return nil, err
	}
	return n.choices(ctx, p, "turn")
}

func (n *Narrator) choices(ctx context.Context, p, purpose string) ([]story.Choice, error) {
	var out story.Choices
	if err := n.gen.Generate(ctx, llm.KindChoices, p, &out); err != nil {
		return nil, fmt.Errorf("generate %s options: %w", purpose, err)
	}
	opts := make([]story.Choice, 0, maxOptions)
	for _, c := range out.Choices {
		if strings.TrimSpace(c.Choice) == "" {
			continue
		}
		opts = append(opts, c)
		if len(opts) == maxOptions {
			break
		}
	}
	if len(opts) == 0 {
		return nil, fmt.Errorf("%s: %w", purpose, ErrNoOptions)
	}
	n.log.Debug("options generated", zap.String("purpose", purpose), zap.Int("count", len(opts)))
	return opts, nil
}

// Answer answers a player question about the story so far.
func (n *Narrator) Answer(ctx context.Context, m *story.Memory, question string) (string, error) {
	p, err := n.prompts.Question(m, question)
	if err != nil {
		return "", err
	}
	var out story.Answer
	if err := n.gen.Generate(ctx, llm.KindAnswer, p, &out); err != nil {
		return "", fmt.Errorf("answer question: %w", err)
	}
	return strings.TrimSpace(out.Answer), nil
}

// Consequence simulates what follows the player's action.
func (n *Narrator) Consequence(ctx context.Context, m *story.Memory, action string) (story.Consequence, error) {
	p, err := n.prompts.Consequence(m, action)
	if err != nil {
		return story.Consequence{}, err
	}
	var out story.Consequence
	if err := n.gen.Generate(ctx, llm.KindConsequence, p, &out); err != nil {
		return story.Consequence{}, fmt.Errorf("simulate consequence: %w", err)
	}
	if strings.TrimSpace(out.Choice) == "" {
		out.Choice = action
	}
	n.log.Debug("consequence generated", zap.Int("turn", m.NextTurn()), zap.Int("prose_bytes", len(out.Prose)))
	return out, nil
}
