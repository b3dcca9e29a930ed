package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/quillmate/quillmate/internal/config"
	"github.com/quillmate/quillmate/internal/dispatch"
	"github.com/quillmate/quillmate/internal/logging"
	"github.com/quillmate/quillmate/internal/provider"
	"github.com/quillmate/quillmate/internal/session"
)

var (
	cfgFile       string
	modelFlag     string
	providerFlag  string
	testModeFlag  bool
	verboseFlag   bool
	ephemeralFlag bool
	useTUI        bool

	// Package-level version info, set by Execute().
	appVersion string
	appCommit  string
	appDate    string
)

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date

	rootCmd := &cobra.Command{
		Use:   "quillmate",
		Short: "Rewrite notes and chat with LLMs from the terminal",
		Long: "quillmate sends notes to a chat-completion API to be improved or expanded,\n" +
			"and keeps persistent multi-conversation chats. Running quillmate with no\n" +
			"subcommand starts a chat.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Default TUI on when stdout is a terminal and --tui was not explicitly set.
			if !cmd.Root().PersistentFlags().Changed("tui") && term.IsTerminal(int(os.Stdout.Fd())) {
				useTUI = true
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default ~/.config/quillmate/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&modelFlag, "model", "m", "", "override model")
	rootCmd.PersistentFlags().StringVarP(&providerFlag, "provider", "p", "", "override provider (openai, anthropic, custom, ollama)")
	rootCmd.PersistentFlags().BoolVar(&testModeFlag, "test-mode", false, "answer with canned replies instead of calling a provider")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "log debug output to stderr")
	rootCmd.PersistentFlags().BoolVar(&ephemeralFlag, "ephemeral", false, "keep chats and rewrite history in memory only")
	rootCmd.PersistentFlags().BoolVar(&useTUI, "tui", false, "use the full-screen chat UI (default: auto-detect terminal)")

	// Subcommands
	rootCmd.AddCommand(newRewriteCmd("rewrite"))
	rootCmd.AddCommand(newRewriteCmd("expand"))
	rootCmd.AddCommand(newUndoCmd())
	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newChatsCmd())
	rootCmd.AddCommand(newTestCmd())
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newVersionCmd(version, commit, date))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// displayVersion returns a formatted version string for the welcome banner,
// e.g. "v0.3.1 (abc1234)".
func displayVersion() string {
	v := "v" + appVersion
	if appCommit != "" && appCommit != "none" {
		v += " (" + appCommit + ")"
	}
	return v
}

// historyStore is what the commands need from persistence: chats plus
// rewrite history.
type historyStore interface {
	session.Store
	session.RewriteStore
}

// app bundles the resources shared by the commands.
type app struct {
	cfg   *config.Config
	log   *zap.Logger
	store historyStore

	// Set when appOptions.providers is true.
	settings   provider.Settings
	dispatcher *dispatch.Dispatcher
}

// appOptions selects which resources newApp opens.
type appOptions struct {
	providers bool
	store     bool
	// quietConsole keeps log output off the terminal (full-screen UI).
	quietConsole bool
}

// newApp loads the configuration, applies flag overrides and opens the
// resources requested by opts. Callers must Close the result.
func newApp(opts appOptions) (*app, error) {
	cfg, err := initConfig()
	if err != nil {
		return nil, err
	}

	logCfg := logging.Config{
		File:    cfg.Log.File,
		Level:   cfg.Log.Level,
		Verbose: verboseFlag,
	}
	if logCfg.File == "" {
		logCfg.File = logging.DefaultFile()
	}
	if opts.quietConsole {
		logCfg.Console = io.Discard
	}
	log, err := logging.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	a := &app{cfg: cfg, log: log}

	if opts.store {
		if a.store, err = openStore(); err != nil {
			a.Close()
			return nil, err
		}
	}

	if opts.providers {
		if a.settings, err = cfg.ProviderSettings(); err != nil {
			a.Close()
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		a.dispatcher, err = dispatch.FromSettings(a.settings, provider.Options{
			RequestTimeout: cfg.RequestTimeout,
			Logger:         log,
		})
		if err != nil {
			a.Close()
			if errors.Is(err, provider.ErrMissingCredential) {
				return nil, fmt.Errorf("%w\nSet it in %s, via QUILLMATE_API_KEY, or run: quillmate init", err, configPathHint())
			}
			return nil, err
		}
		log.Debug("providers ready",
			zap.String("primary", a.dispatcher.Primary().Name()),
			zap.String("model", a.dispatcher.Primary().DefaultModel()),
			zap.Bool("fallback", a.dispatcher.FallbackEnabled()),
			zap.Bool("test_mode", a.settings.TestMode))
	}
	return a, nil
}

// Close releases the store and flushes the logger.
func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("close store", zap.Error(err))
		}
	}
	_ = a.log.Sync()
}

// initConfig loads configuration, applying CLI flag overrides.
func initConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	// CLI flags override config values
	if providerFlag != "" {
		cfg.Provider = providerFlag
	}
	if modelFlag != "" {
		cfg.Model = modelFlag
	}
	if testModeFlag {
		cfg.TestMode = true
	}
	return cfg, nil
}

func openStore() (historyStore, error) {
	if ephemeralFlag {
		return session.NewMemoryStore(), nil
	}
	dbPath, err := session.DefaultDBPath()
	if err != nil {
		return nil, fmt.Errorf("session db path: %w", err)
	}
	store, err := session.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	return store, nil
}

func configPathHint() string {
	if cfgFile != "" {
		return cfgFile
	}
	if p, err := config.DefaultPath(); err == nil {
		return p
	}
	return "the config file"
}

// stdoutIsTerminal reports whether styled output can be used.
func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// terminalWidth returns the stdout width, or 0 when unknown.
func terminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 0
	}
	return w
}
