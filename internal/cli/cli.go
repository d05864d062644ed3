// Package cli builds the patchview command line interface.
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// Config holds the resolved CLI configuration.
type Config struct {
	Mode      string // "merge-base", "commit", "compare", "working", "stdin", "file"
	Base      string // base ref for diff
	Target    string // target ref (or empty for working tree)
	PatchFile string // patch file path in file mode

	Port     int
	Host     string
	NoOpen   bool
	ViewMode string // "split" or "unified"
	Watch    bool   // reload the patch file on change (file mode only)
	Copy     bool   // copy the viewer URL to the clipboard

	DBPath     string
	ConfigPath string
	LogLevel   string
	LogJSON    bool

	// Set tracks which flags were given explicitly, so file-config
	// values are only overridden by flags the user actually passed.
	Set map[string]bool
}

const longHelp = `Display git patches in a browser-based diff viewer.

Arguments:
  (none)         diff working tree against merge-base with main/master
  <commit>       show the patch for a single commit
  <ref1> <ref2>  diff between two refs
  <file.patch>   view a patch file (reloadable with --watch)
  -              read unified diff from stdin`

// New builds the root command. run receives the resolved Config.
func New(run func(cfg *Config) error) *cobra.Command {
	cfg := &Config{}

	cmd := &cobra.Command{
		Use:           "patchview [flags] [ref1 [ref2]]",
		Short:         "Browser-based viewer for git patches",
		Long:          longHelp,
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := resolveMode(cfg, args); err != nil {
				return err
			}
			if cfg.ViewMode != "" && cfg.ViewMode != "split" && cfg.ViewMode != "unified" {
				return fmt.Errorf("invalid mode %q: must be split or unified", cfg.ViewMode)
			}
			if cfg.Port < 0 || cfg.Port > 65535 {
				return fmt.Errorf("invalid port: %d (must be 0-65535)", cfg.Port)
			}
			if cfg.Watch && cfg.Mode != "file" {
				return fmt.Errorf("--watch requires a patch file argument")
			}

			cfg.Set = map[string]bool{}
			for _, name := range []string{"port", "host", "mode", "db", "log-level", "log-json"} {
				cfg.Set[name] = cmd.Flags().Changed(name)
			}

			return run(cfg)
		},
	}

	fl := cmd.Flags()
	fl.IntVar(&cfg.Port, "port", 0, "HTTP server port (0 = auto)")
	fl.StringVar(&cfg.Host, "host", "", "HTTP server host (default localhost)")
	fl.BoolVar(&cfg.NoOpen, "no-open", false, "don't open the browser automatically")
	fl.StringVar(&cfg.ViewMode, "mode", "", "view mode: split or unified")
	fl.BoolVar(&cfg.Watch, "watch", false, "reload the patch file when it changes")
	fl.BoolVar(&cfg.Copy, "copy", false, "copy the viewer URL to the clipboard")
	fl.StringVar(&cfg.DBPath, "db", "", "patch database path (--db \"\" disables storage)")
	fl.StringVar(&cfg.ConfigPath, "config", "", "config file path")
	fl.StringVar(&cfg.LogLevel, "log-level", "", "log level: debug, info, warn, error")
	fl.BoolVar(&cfg.LogJSON, "log-json", false, "log as JSON instead of text")

	return cmd
}

// resolveMode maps positional arguments onto a viewing mode, the same
// way the bare git workflow reads them.
func resolveMode(cfg *Config, args []string) error {
	switch len(args) {
	case 0:
		cfg.Mode = "merge-base"
	case 1:
		arg := args[0]
		switch {
		case arg == "-":
			cfg.Mode = "stdin"
		case arg == ".":
			cfg.Mode = "working"
		case strings.HasSuffix(arg, ".patch") || strings.HasSuffix(arg, ".diff"):
			cfg.Mode = "file"
			cfg.PatchFile = arg
		default:
			cfg.Mode = "commit"
			cfg.Base = arg
		}
	case 2:
		cfg.Mode = "compare"
		cfg.Base = args[0]
		cfg.Target = args[1]
	}
	return nil
}
