// Package main provides the CLI entrypoint for typeme.
package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/typeme/internal/config"
	"github.com/verte-zerg/typeme/internal/gateway"
	"github.com/verte-zerg/typeme/internal/generator"
	"github.com/verte-zerg/typeme/internal/model"
	"github.com/verte-zerg/typeme/internal/session"
	"github.com/verte-zerg/typeme/internal/stats"
	"github.com/verte-zerg/typeme/internal/statsui"
	"github.com/verte-zerg/typeme/internal/tui"
	"github.com/verte-zerg/typeme/internal/wordlist"
)

const (
	defaultHistoryLimit = 10
	defaultHistoryWidth = 80
)

var (
	practiceDuration int
	practiceMode     string
	practiceWords    int
	practiceWordList string

	backendKind string
	verbose     bool

	statsBest    bool
	historyLimit int

	boardDuration int
	boardMode     string
	boardLimit    int
	boardBest     bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "typeme",
		Short:         "Typing speed test with a shared leaderboard",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPracticeCmd,
	}

	rootCmd.Flags().IntVar(&practiceDuration, "duration", model.Duration30, "timed test length in seconds (30 or 60)")
	rootCmd.Flags().StringVar(&practiceMode, "mode", string(model.TestTimed), "test mode (timed or words)")
	rootCmd.Flags().IntVar(&practiceWords, "words", config.DefaultWords, "text length in words mode")
	rootCmd.Flags().StringVar(&practiceWordList, "wordlist", "", "word list file, one word per line")

	rootCmd.PersistentFlags().StringVar(&backendKind, "backend", config.KindREST, "backend kind (rest, sqlite or postgres)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newLeaderboardCmd())
	rootCmd.AddCommand(newNameCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newWhoamiCmd())

	return rootCmd
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.settings.Practice
	words, err := wordlist.Resolve(cfg.WordListPath)
	if err != nil {
		return err
	}
	batch := session.DefaultBatch
	if cfg.Mode == model.TestWords {
		batch = cfg.Words
	}
	engineCfg := session.Config{Mode: cfg.Mode, Duration: cfg.Duration, Batch: batch}

	m := tui.NewModel(engineCfg, generator.New(words), a.viewModel(false),
		tui.WithLogger(a.logger),
		tui.WithTimeout(a.settings.Backend.Timeout),
	)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show profile and leaderboard",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().BoolVar(&statsBest, "best", false, "show one entry per player")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	m := statsui.NewModel(a.viewModel(statsBest), a.settings.Backend.Timeout)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print recent results",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().IntVar(&historyLimit, "last", defaultHistoryLimit, "number of results")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	if historyLimit <= 0 {
		return fmt.Errorf("--last must be greater than 0")
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := a.context(cmd.Context())
	defer cancel()
	id, err := a.gateway.SessionID(ctx)
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}
	results, err := a.gateway.FetchUserResults(ctx, id, historyLimit)
	if err != nil {
		return fmt.Errorf("failed to load results: %w", err)
	}

	var buf bytes.Buffer
	if err := stats.RenderResults(&buf, results); err != nil {
		return fmt.Errorf("failed to render results: %w", err)
	}
	width := terminalWidth()
	for _, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), clip(line, width)); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		return defaultHistoryWidth
	}
	return width
}

func clip(line string, width int) string {
	if width <= 0 {
		return line
	}
	runes := []rune(line)
	if len(runes) <= width {
		return line
	}
	return string(runes[:width])
}

func newLeaderboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Print the top results",
		Args:  cobra.NoArgs,
		RunE:  runLeaderboardCmd,
	}
	cmd.Flags().IntVar(&boardDuration, "scope", 0, "duration scope in seconds (30 or 60, 0 for all)")
	cmd.Flags().StringVar(&boardMode, "type", string(model.TestTimed), "test type (timed or words)")
	cmd.Flags().IntVar(&boardLimit, "limit", gateway.DefaultLimit, "number of entries")
	cmd.Flags().BoolVar(&boardBest, "best", false, "one entry per player")
	return cmd
}

func runLeaderboardCmd(cmd *cobra.Command, _ []string) error {
	filter := model.DurationFilter(boardDuration)
	if filter != model.FilterAll && filter != model.Filter30 && filter != model.Filter60 {
		return fmt.Errorf("--scope must be 30, 60 or 0")
	}
	mode := model.TestType(boardMode)
	if !mode.Valid() {
		return fmt.Errorf("--type must be timed or words")
	}
	if boardLimit <= 0 {
		return fmt.Errorf("--limit must be greater than 0")
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := a.context(cmd.Context())
	defer cancel()
	q := gateway.LeaderboardQuery{TestType: mode, Limit: boardLimit, Duration: filter}
	fetch := a.gateway.FetchLeaderboard
	if boardBest {
		fetch = a.gateway.FetchBestLeaderboard
	}
	entries, err := fetch(ctx, q)
	if err != nil {
		return fmt.Errorf("failed to load leaderboard: %w", err)
	}
	return stats.RenderLeaderboard(cmd.OutOrStdout(), entries, 0)
}

func newNameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "name [display name]",
		Short: "Set the leaderboard display name (empty clears it)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runNameCmd,
	}
}

func runNameCmd(cmd *cobra.Command, args []string) error {
	name := ""
	if len(args) == 1 {
		name = args[0]
	}
	if _, err := gateway.ValidateDisplayName(name); err != nil {
		return err
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := a.context(cmd.Context())
	defer cancel()
	id, err := a.gateway.SessionID(ctx)
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}
	profile, err := a.gateway.UpsertDisplayName(ctx, id, name)
	if err != nil {
		return fmt.Errorf("failed to update display name: %w", err)
	}
	label := profile.Name()
	if label == "" {
		label = model.AnonymousName
	}
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Display name: %s\n", label); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the local session id and cached display name",
		Args:  cobra.NoArgs,
		RunE:  runWhoamiCmd,
	}
}

func runWhoamiCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	id, err := a.identity.SessionID(ctx)
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}
	name, err := a.identity.DisplayName(ctx)
	if err != nil {
		return fmt.Errorf("failed to read display name: %w", err)
	}
	if name == "" {
		name = model.AnonymousName
	}
	out := cmd.OutOrStdout()
	if _, err := fmt.Fprintf(out, "session: %s\nname:    %s\n", id, name); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if _, err := config.WriteTemplate(path); err != nil {
		return err
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
