package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/atmb4u/gamegirl/internal/story"
)

func newSavesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "saves",
		Short: "List saved stories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, st, err := setup(opts, false)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			defer st.Close()

			saves, err := st.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(saves) == 0 {
				fmt.Fprintln(out, "No saved stories.")
				return nil
			}
			fmt.Fprintf(out, "%-14s %5s  %-16s  %-20s  %s\n", "NAME", "TURNS", "UPDATED", "CHARACTER", "PLOT")
			for _, s := range saves {
				if s.Err != nil {
					fmt.Fprintf(out, "%-14s %5s  %-16s  %-20s  %s\n",
						s.Name, "-", s.UpdatedAt.Local().Format("2006-01-02 15:04"), "-", clip("unreadable: "+s.Err.Error(), 60))
					continue
				}
				fmt.Fprintf(out, "%-14s %5d  %-16s  %-20s  %s\n",
					s.Name, s.Turns, s.UpdatedAt.Local().Format("2006-01-02 15:04"),
					clip(s.Character, 20), clip(s.Plot, 60))
			}
			return nil
		},
	}
}

func newShowCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show REF",
		Short: "Print a saved story: profile, turns, questions and prose",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, st, err := setup(opts, false)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			defer st.Close()

			m, err := st.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printStory(cmd.OutOrStdout(), m)
			return nil
		},
	}
}

func printStory(out io.Writer, m *story.Memory) {
	fmt.Fprintf(out, "%s (%s)\n", m.Name(), m.ID())
	fmt.Fprintf(out, "Started %s, %d turns, version %d\n", m.CreatedAt().Local().Format(time.RFC1123), m.Len(), m.Version())

	fmt.Fprintln(out, "\nProfile")
	for _, kind := range story.ProfileKinds {
		label := "-"
		if c, ok := m.ProfileChoice(kind); ok {
			label = c.Label()
		}
		fmt.Fprintf(out, "  %-11s %s\n", kind+":", label)
	}

	if turns := m.Turns(); len(turns) > 0 {
		fmt.Fprintln(out, "\nTurns")
		for _, t := range turns {
			custom := ""
			if t.Custom {
				custom = " (custom)"
			}
			fmt.Fprintf(out, "  %d. %s%s\n     %s\n", t.Number, t.Action, custom, t.Consequence)
		}
	}

	if qs := m.Questions(); len(qs) > 0 {
		fmt.Fprintln(out, "\nQuestions")
		for _, q := range qs {
			fmt.Fprintf(out, "  after turn %d: %s\n     %s\n", q.AfterTurn, q.Question, q.Answer)
		}
	}

	if plot := m.Plot(); plot != "" {
		fmt.Fprintf(out, "\nPlot\n%s\n", plot)
	}
	if prose := m.Prose(); prose != "" {
		fmt.Fprintf(out, "\nStory\n%s\n", prose)
	}
}

func clip(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
