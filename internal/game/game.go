// Package game runs an interactive session: profile setup for a new story,
// then the turn loop of choices, consequences and player questions.
package game

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/atmb4u/gamegirl/internal/console"
	"github.com/atmb4u/gamegirl/internal/store"
	"github.com/atmb4u/gamegirl/internal/story"
)

const (
	welcome  = "Welcome to GameGirl - The stories we tell ourselves!"
	farewell = "Thank you for playing GameGirl!"
	helpText = "Type a question to ask about the story\n" +
		"f for full story\n" +
		"m for more choices\n" +
		"s to save\n" +
		"q to quit"
)

// Narrator generates everything the model contributes to a session.
type Narrator interface {
	InitialOptions(ctx context.Context, m *story.Memory, kind story.ProfileKind) ([]story.Choice, error)
	NextChoices(ctx context.Context, m *story.Memory) ([]story.Choice, error)
	Answer(ctx context.Context, m *story.Memory, question string) (string, error)
	Consequence(ctx context.Context, m *story.Memory, action string) (story.Consequence, error)
}

type Deps struct {
	Narrator Narrator
	Store    store.Store
	Console  *console.Console
	Log      *zap.Logger
}

// Game is one play session over a single story memory.
type Game struct {
	narrator Narrator
	store    store.Store
	con      *console.Console
	log      *zap.Logger
	mem      *story.Memory
}

func New(d Deps) (*Game, error) {
	if d.Narrator == nil || d.Store == nil || d.Console == nil {
		return nil, errors.New("game needs a narrator, a store and a console")
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return &Game{narrator: d.Narrator, store: d.Store, con: d.Console, log: d.Log}, nil
}

// Memory is the story being played, nil before Play has started one.
func (g *Game) Memory() *story.Memory { return g.mem }

// Play starts a new story when ref is empty and resumes the saved story ref
// otherwise. Quitting returns nil after a final save. Any other failure is
// returned after saving whatever the session produced.
func (g *Game) Play(ctx context.Context, ref string) error {
	if err := g.open(ctx, ref); err != nil {
		return err
	}
	g.log = g.log.With(zap.String("story_id", g.mem.ID()), zap.String("story", g.mem.Name()))
	g.log.Info("session started", zap.Int("turns", g.mem.Len()))

	err := g.setup(ctx)
	if err == nil {
		err = g.loop(ctx)
	}
	return g.finish(ctx, err)
}

func (g *Game) open(ctx context.Context, ref string) error {
	if ref != "" {
		m, err := g.store.Load(ctx, ref)
		if err != nil {
			return fmt.Errorf("load %s: %w", ref, err)
		}
		g.mem = m
		g.con.Banner("Welcome back to GameGirl!", fmt.Sprintf("Resuming %s after %d turns. Press q to quit.", m.Name(), m.Len()))
		return nil
	}
	saves, err := g.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list saves: %w", err)
	}
	g.mem = story.New(store.NextName(saves))
	g.con.Banner(welcome, "Press q to quit.")
	return nil
}

// setup fills any empty profile slot. Slots are only open before the first
// turn, so a resumed story that was quit during setup continues here.
func (g *Game) setup(ctx context.Context) error {
	if g.mem.Len() > 0 {
		return nil
	}
	for _, kind := range story.ProfileKinds {
		if _, ok := g.mem.ProfileChoice(kind); ok {
			continue
		}
		if err := g.chooseProfile(ctx, kind); err != nil {
			return err
		}
	}
	return nil
}

func (g *Game) chooseProfile(ctx context.Context, kind story.ProfileKind) error {
	options, err := g.narrator.InitialOptions(ctx, g.mem, kind)
	if err != nil {
		return err
	}
	g.con.Choices(fmt.Sprintf("Choose your %s:", kind), options, fmt.Sprintf("Type your own %s", kind))

	var picked story.Choice
	for {
		in, err := g.con.Ask(ctx, fmt.Sprintf("Pick your %s (1-3) or type your own %s: ", kind, kind))
		if err != nil {
			return err
		}
		if n, ok := pick(in, len(options)); ok {
			picked = options[n]
			break
		}
		if in == "4" {
			in, err = g.con.Ask(ctx, fmt.Sprintf("Describe your %s: ", kind))
			if err != nil {
				return err
			}
		}
		if in == "" {
			continue
		}
		picked = story.Choice{Choice: in, ChoiceType: string(kind)}
		break
	}
	if err := g.mem.SetProfile(kind, picked); err != nil {
		return err
	}
	g.log.Debug("profile chosen", zap.String("kind", string(kind)), zap.String("choice", picked.Choice))
	return nil
}

func (g *Game) loop(ctx context.Context) error {
	var choices []story.Choice
	for {
		if choices == nil {
			if plot := g.mem.Plot(); plot != "" {
				g.con.Section("Story summary so far:", plot)
			} else {
				g.con.Section("What's your next move?", "")
			}
			var err error
			if choices, err = g.narrator.NextChoices(ctx, g.mem); err != nil {
				return err
			}
		}
		g.con.Choices("", choices, "Custom event")

		in, err := g.con.Ask(ctx, "Enter your choice (1-4) or h for help: ")
		if err != nil {
			return err
		}
		switch strings.ToLower(in) {
		case "h":
			g.con.Section("Help", helpText)
		case "f":
			g.showProse()
		case "m", "":
			choices = nil
		case "s":
			if err := g.save(ctx); err != nil {
				g.con.Error(err)
				continue
			}
			g.con.Printf("Saved %s.\n", g.mem.Name())
		case "1", "2", "3":
			n, ok := pick(in, len(choices))
			if !ok {
				g.con.Println("There is no such choice.")
				continue
			}
			if err := g.advance(ctx, choices[n].Choice, false, choices); err != nil {
				return err
			}
			choices = nil
		case "4":
			action, err := g.con.Ask(ctx, "Enter your custom action: ")
			if err != nil {
				return err
			}
			if action == "" {
				continue
			}
			if err := g.advance(ctx, action, true, choices); err != nil {
				return err
			}
			choices = nil
		default:
			if err := g.questions(ctx, in); err != nil {
				return err
			}
		}
	}
}

// advance asks for the consequence of action and appends it as a turn.
func (g *Game) advance(ctx context.Context, action string, custom bool, offered []story.Choice) error {
	g.con.Println("...")
	c, err := g.narrator.Consequence(ctx, g.mem, action)
	if err != nil {
		return err
	}
	plot, prose := c.Plot, c.Prose
	if strings.TrimSpace(plot) == "" {
		plot = g.mem.Plot()
	}
	if strings.TrimSpace(prose) == "" {
		prose = g.mem.Prose()
	}
	turn, err := g.mem.AppendTurn(story.Turn{
		Offered:     offered,
		Action:      action,
		Custom:      custom,
		Consequence: c.Consequence,
		Plot:        plot,
		Prose:       prose,
	})
	if err != nil {
		return err
	}
	g.log.Info("turn appended", zap.Int("turn", turn.Number), zap.Bool("custom", custom))

	g.con.Section(fmt.Sprintf("Turn %d", turn.Number), "")
	g.con.Prose(c.Consequence)
	g.autosave(ctx)
	return nil
}

// questions answers q and keeps taking questions until the player types c.
func (g *Game) questions(ctx context.Context, q string) error {
	for {
		answer, err := g.narrator.Answer(ctx, g.mem, q)
		if err != nil {
			return err
		}
		g.con.Printf("\nQuestion: %s\nAnswer: %s\n", q, answer)
		g.mem.RecordQuestion(q, answer)
		g.log.Debug("question answered", zap.Int("after_turn", g.mem.Len()))
		g.autosave(ctx)

		for {
			q, err = g.con.Ask(ctx, "Type your question for analysis\nEnter c to continue: ")
			if err != nil {
				return err
			}
			if strings.EqualFold(q, "c") {
				return nil
			}
			if q != "" {
				break
			}
		}
	}
}

func (g *Game) showProse() {
	prose := g.mem.Prose()
	if prose == "" {
		prose = "Nothing has happened yet."
	}
	g.con.Section("Story so far:", "")
	g.con.Prose(prose)
}

func (g *Game) save(ctx context.Context) error {
	if err := g.store.Save(ctx, g.mem); err != nil {
		return fmt.Errorf("save %s: %w", g.mem.Name(), err)
	}
	g.log.Debug("story saved", zap.Int("turns", g.mem.Len()), zap.Int("version", g.mem.Version()))
	return nil
}

// autosave reports a failed save and lets play continue; the memory is
// still intact and the next save may succeed.
func (g *Game) autosave(ctx context.Context) {
	if err := g.save(ctx); err != nil {
		g.log.Error("autosave failed", zap.Error(err))
		g.con.Error(err)
	}
}

// finish saves the story however the session ended, unless nothing was
// chosen yet. A save made after cancellation uses a context that is no
// longer canceled.
func (g *Game) finish(ctx context.Context, cause error) error {
	saveCtx := ctx
	if ctx.Err() != nil {
		saveCtx = context.WithoutCancel(ctx)
	}
	var saveErr error
	if g.blank() {
		g.log.Debug("nothing to save")
	} else {
		saveErr = g.save(saveCtx)
	}

	switch {
	case cause == nil, errors.Is(cause, console.ErrQuit):
		if saveErr != nil {
			return saveErr
		}
		g.log.Info("session ended", zap.Int("turns", g.mem.Len()))
		g.con.Println(farewell)
		return nil
	default:
		g.log.Error("session failed", zap.Error(cause), zap.Int("turns", g.mem.Len()))
		if saveErr != nil {
			return errors.Join(cause, saveErr)
		}
		return cause
	}
}

// blank reports whether the story has neither a profile choice nor a turn.
func (g *Game) blank() bool {
	if g.mem.Len() > 0 {
		return false
	}
	for _, kind := range story.ProfileKinds {
		if _, ok := g.mem.ProfileChoice(kind); ok {
			return false
		}
	}
	return true
}

// pick maps "1".."3" onto an index into n options.
func pick(in string, n int) (int, bool) {
	if len(in) != 1 || in[0] < '1' || in[0] > '3' {
		return 0, false
	}
	i := int(in[0] - '1')
	return i, i < n
}
