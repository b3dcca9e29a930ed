package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/quillmate/quillmate/internal/enhance"
	"github.com/quillmate/quillmate/internal/prompt"
	"github.com/quillmate/quillmate/internal/tui"
)

type rewriteFlags struct {
	lines   string
	apply   bool
	compare bool
	raw     bool
}

// newRewriteCmd builds "rewrite" (improve mode) or "expand" (enhance mode).
func newRewriteCmd(name string) *cobra.Command {
	mode := prompt.ModeImprove
	short := "Improve the wording of a note"
	if name == "expand" {
		mode = prompt.ModeEnhance
		short = "Rewrite a note and expand it with related detail"
	}

	var f rewriteFlags
	cmd := &cobra.Command{
		Use:   name + " FILE",
		Short: short,
		Long: short + ".\n\nThe result is previewed as Markdown; --apply writes it into FILE\n" +
			"(undo with: quillmate undo FILE).",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRewrite(cmd, args[0], mode, f)
		},
	}
	cmd.Flags().StringVarP(&f.lines, "lines", "l", "", "line range to rewrite, e.g. 3:10 (default: whole file)")
	cmd.Flags().BoolVar(&f.apply, "apply", false, "replace the selection in FILE with the result")
	cmd.Flags().BoolVar(&f.compare, "compare", false, "show original and result side by side")
	cmd.Flags().BoolVar(&f.raw, "raw", false, "print the result without Markdown rendering")
	return cmd
}

func runRewrite(cmd *cobra.Command, path string, mode prompt.Mode, f rewriteFlags) error {
	r, err := enhance.ParseRange(f.lines)
	if err != nil {
		return err
	}

	a, err := newApp(appOptions{providers: true, store: f.apply})
	if err != nil {
		return err
	}
	defer a.Close()

	svc := newEnhanceService(a)
	res, err := svc.RewriteFile(cmd.Context(), path, r, mode)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if err := printResult(out, res, f); err != nil {
		return err
	}

	if f.apply {
		if err := svc.Apply(res, a.store); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Applied to %s (lines %s). Undo with: quillmate undo %s\n", res.Path, res.Range, res.Path)
	}
	return nil
}

func newEnhanceService(a *app) *enhance.Service {
	var completer enhance.Completer
	if a.dispatcher != nil {
		completer = a.dispatcher
	}
	return enhance.New(completer, enhance.Config{
		Prompt:      a.cfg.PromptOptions(),
		Temperature: a.settings.Temperature,
		Model:       a.settings.Primary.Model,
		CacheTTL:    a.cfg.CacheTTL,
		TestMode:    a.settings.TestMode,
	}, a.log)
}

func printResult(out io.Writer, res *enhance.Result, f rewriteFlags) error {
	width := terminalWidth()
	switch {
	case f.compare:
		fmt.Fprintln(out, tui.Compare(res.Original, res.Rewritten, width))
	case f.raw || !stdoutIsTerminal():
		fmt.Fprintln(out, res.Rewritten)
	default:
		rendered, err := tui.Preview(res.Rewritten, width, true)
		if err != nil {
			return fmt.Errorf("render preview: %w", err)
		}
		fmt.Fprintln(out, rendered)
	}
	return nil
}

func newUndoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undo FILE",
		Short: "Revert the last applied rewrite of FILE",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(appOptions{store: true})
			if err != nil {
				return err
			}
			defer a.Close()

			rec, err := newEnhanceService(a).Undo(args[0], a.store)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Restored lines %d-%d of %s.\n", rec.StartLine, rec.EndLine, args[0])
			return nil
		},
	}
}
