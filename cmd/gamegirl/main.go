package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atmb4u/gamegirl/internal/config"
	"github.com/atmb4u/gamegirl/internal/console"
	"github.com/atmb4u/gamegirl/internal/game"
	"github.com/atmb4u/gamegirl/internal/llm"
	"github.com/atmb4u/gamegirl/internal/logger"
	"github.com/atmb4u/gamegirl/internal/narrator"
	"github.com/atmb4u/gamegirl/internal/prompt"
	"github.com/atmb4u/gamegirl/internal/store"
)

type options struct {
	file    string
	config  string
	verbose bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		// The first interrupt ends the session and saves; a second one
		// exits at once.
		stop()
	}()

	if err := newRootCmd(os.Stdin).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd(in io.Reader) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "gamegirl",
		Short: "GameGirl - The stories we tell ourselves",
		Long: `GameGirl is an interactive fiction game written by a language model.

Pick a character, a setting and a motivation, then steer the story one turn
at a time. Progress is saved after every turn; pass --file to continue a
previous story.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return play(cmd.Context(), opts, in, cmd.OutOrStdout())
		},
	}
	root.PersistentFlags().StringVar(&opts.config, "config", "", "YAML config file (environment variables override it)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	root.Flags().StringVarP(&opts.file, "file", "f", "", "previous save to continue (path, name or id)")

	root.AddCommand(newSavesCmd(opts), newShowCmd(opts))
	return root
}

// setup loads configuration and builds the logger and store every command
// needs. The caller closes the store and syncs the logger.
func setup(opts *options, needLLM bool) (*config.Config, *zap.Logger, store.Store, error) {
	cfg, err := config.Load(opts.config)
	if err != nil {
		return nil, nil, nil, err
	}
	validate := cfg.ValidateStore
	if needLLM {
		validate = cfg.Validate
	}
	if err := validate(); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if opts.verbose {
		cfg.Logger.Level = "debug"
	}
	log, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, nil, nil, err
	}
	st, err := store.Open(cfg.StoreOptions())
	if err != nil {
		_ = log.Sync()
		return nil, nil, nil, fmt.Errorf("open store: %w", err)
	}
	return cfg, log, st, nil
}

func play(ctx context.Context, opts *options, in io.Reader, out io.Writer) error {
	cfg, log, st, err := setup(opts, true)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	defer st.Close()

	provider, err := newProvider(ctx, cfg.LLM)
	if err != nil {
		return err
	}
	client := llm.NewClient(provider, llm.Config{
		Timeout:     cfg.LLM.Timeout,
		MaxAttempts: cfg.LLM.MaxAttempts,
		RetryDelay:  cfg.LLM.RetryDelay,
		MaxTokens:   cfg.LLM.MaxTokens,
	}, log)
	defer client.Close()

	con := console.New(in, out, console.WithColor(useColor(cfg.Color, out)))
	defer con.Close()

	g, err := game.New(game.Deps{
		Narrator: narrator.New(client, newPromptBuilder(cfg, log), log),
		Store:    st,
		Console:  con,
		Log:      log,
	})
	if err != nil {
		return err
	}
	log.Info("starting", zap.String("provider", provider.Name()), zap.String("store", cfg.Store.Backend))

	err = g.Play(ctx, opts.file)
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(out, "\nInterrupted. Your story was saved.")
		return nil
	}
	return err
}

func newProvider(ctx context.Context, cfg config.LLMConfig) (llm.Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case config.ProviderOpenAI:
		return llm.NewOpenAI(llm.OpenAIConfig{
			APIKey:      cfg.OpenAIAPIKey,
			BaseURL:     cfg.OpenAIBaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
		})
	case config.ProviderGemini:
		return llm.NewGemini(ctx, llm.GeminiConfig{
			APIKey:      cfg.GeminiAPIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
		})
	}
	return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
}

// newPromptBuilder measures prose with tiktoken. The encoding tables are
// fetched on first use, so an offline start falls back to an estimate.
func newPromptBuilder(cfg *config.Config, log *zap.Logger) *prompt.Builder {
	if cfg.Prompt.ProseTokenBudget <= 0 {
		return prompt.NewBuilder()
	}
	counter, err := prompt.NewTiktokenCounter(cfg.TokenEncoding())
	if err != nil {
		log.Warn("tiktoken unavailable, estimating tokens", zap.String("encoding", cfg.TokenEncoding()), zap.Error(err))
		counter = prompt.ApproxCounter{}
	}
	return prompt.NewBuilder(prompt.WithProseBudget(counter, cfg.Prompt.ProseTokenBudget))
}

func useColor(mode string, out io.Writer) bool {
	switch strings.ToLower(mode) {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := out.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
