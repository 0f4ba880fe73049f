// mise is a terminal cooking companion that schedules a recipe's steps by
// their dependencies and runs the timers.
//
// Usage:
//
//	mise list [query]
//	mise show <recipe>
//	mise validate <file>...
//	mise cook <recipe> [--no-sound] [--tick 1s]
package main

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hammamikhairi/mise/internal/config"
	"github.com/hammamikhairi/mise/internal/domain"
	"github.com/hammamikhairi/mise/internal/logger"
	"github.com/hammamikhairi/mise/internal/recipe"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app carries what every command needs once the persistent flags are parsed.
type app struct {
	cfg      config.Config
	log      *logger.Logger
	recipes  domain.RecipeSource
	logClose io.Closer

	verbose   bool
	quiet     bool
	logFile   string
	recipeDir string
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "mise",
		Short: "Mise - dependency-aware cooking companion",
		Long: `Mise lays a recipe out as a graph of steps, shows which steps can run
side by side, and walks you through cooking it with per-step timers.`,
		SilenceUsage:       true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}

	root.PersistentFlags().BoolVar(&a.verbose, "verbose", false, "enable verbose/debug logging")
	root.PersistentFlags().BoolVar(&a.quiet, "quiet", false, "disable all logging")
	root.PersistentFlags().StringVar(&a.logFile, "log-file", "", `file to write logs to ("stderr" logs to the console)`)
	root.PersistentFlags().StringVar(&a.recipeDir, "recipes", "", "directory of .json/.toml recipe files to load next to the built-ins")

	root.AddCommand(
		newListCmd(a),
		newShowCmd(a),
		newValidateCmd(a),
		newCookCmd(a),
	)
	return root
}

// setup resolves configuration (.env, environment, then flags), opens the
// log and builds the recipe source.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	flags := cmd.Flags()
	if flags.Changed("log-file") {
		cfg.LogFile = a.logFile
	}
	if flags.Changed("recipes") {
		cfg.RecipesDir = a.recipeDir
	}
	if a.verbose {
		cfg.LogLevel = logger.LevelVerbose
	}
	if a.quiet {
		cfg.LogLevel = logger.LevelOff
	}
	a.cfg = cfg

	out := a.openLog(cfg.LogFile)
	a.log = logger.New(cfg.LogLevel, out)

	// Route the standard log package to the same place so libraries that
	// use it don't write over the UI.
	stdlog.SetOutput(out)
	stdlog.SetFlags(stdlog.Ltime)

	for _, w := range cfg.Warnings {
		a.log.Warn("config: %s", w)
	}

	if cfg.RecipesDir == "" {
		a.recipes = recipe.NewMemorySource(a.log)
		return nil
	}
	src, err := recipe.NewDirSource(cmd.Context(), cfg.RecipesDir, true, a.log)
	if err != nil {
		return err
	}
	for _, p := range src.Problems() {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: skipped %v\n", p)
	}
	a.recipes = src
	return nil
}

// openLog directs logs to a file by default so the REPL stays clean,
// falling back to stderr.
func (a *app) openLog(path string) io.Writer {
	if path == "" || path == "stderr" {
		return os.Stderr
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not create log dir %s: %v (falling back to stderr)\n", dir, err)
			return os.Stderr
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not open log file %s: %v (falling back to stderr)\n", path, err)
		return os.Stderr
	}
	a.logClose = f
	return f
}

func (a *app) teardown(*cobra.Command, []string) error {
	if a.logClose != nil {
		return a.logClose.Close()
	}
	return nil
}
