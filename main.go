// patchview displays git patches in a browser-based diff viewer.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/atotto/clipboard"

	"github.com/lundberg/patchview/internal/browser"
	"github.com/lundberg/patchview/internal/cli"
	"github.com/lundberg/patchview/internal/config"
	"github.com/lundberg/patchview/internal/git"
	"github.com/lundberg/patchview/internal/logging"
	"github.com/lundberg/patchview/internal/patch"
	"github.com/lundberg/patchview/internal/server"
	"github.com/lundberg/patchview/internal/store"
	"github.com/lundberg/patchview/internal/watch"
	"github.com/lundberg/patchview/web"
)

func main() {
	cmd := cli.New(run)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *cli.Config) error {
	if err := applyConfigFile(cfg); err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := logging.New(os.Stderr, level, cfg.LogJSON)

	var (
		repo      *git.Repo
		preloaded *patch.ParsedPatch
	)

	switch cfg.Mode {
	case "stdin":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		preloaded, err = patch.Parse(string(data))
		if err != nil {
			return fmt.Errorf("parsing diff from stdin: %w", err)
		}

	case "file":
		preloaded, err = loadPatchFile(cfg.PatchFile)
		if err != nil {
			return err
		}

	default:
		var ref string
		repo, ref, err = anchorRepo(".")
		if err != nil {
			return err
		}
		logger.Debug("repository", "root", repo.Dir, "ref", ref)

		switch cfg.Mode {
		case "merge-base":
			mainBranch, err := repo.MainBranch()
			if err != nil {
				return fmt.Errorf("detecting main branch: %w", err)
			}
			base, err := repo.MergeBase("HEAD", mainBranch)
			if err != nil {
				return fmt.Errorf("computing merge-base: %w", err)
			}
			cfg.Base = base

		case "working":
			cfg.Base = "HEAD"

		case "commit", "compare":
			// Base (and Target for compare) already set by the CLI.
		}
	}

	if preloaded != nil {
		for _, w := range preloaded.Warnings {
			logger.Warn("degraded patch section", "line", w.Line, "reason", w.Reason)
		}
	}

	st, closeStore, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// Listen first so port=0 resolves to the actual address.
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	cfg.Port = ln.Addr().(*net.TCPAddr).Port
	url := fmt.Sprintf("http://%s", net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)))

	fmt.Printf("Listening on %s\n", url)
	if cfg.Host != "localhost" && cfg.Host != "127.0.0.1" {
		fmt.Fprintln(os.Stderr, "WARNING: patchview is not designed for public access. It exposes repository contents without authentication.")
	}
	fmt.Println("Press Ctrl+C to stop")

	srv := server.New(cfg, repo, st, preloaded, web.Assets, logger)

	if cfg.Watch {
		watcher, err := watch.New(cfg.PatchFile, func() {
			p, err := loadPatchFile(cfg.PatchFile)
			if err != nil {
				logger.Error("reload failed", "file", cfg.PatchFile, "error", err)
				return
			}
			srv.SetPreloaded(p)
			logger.Info("patch reloaded", "file", cfg.PatchFile, "files", p.Stats.FilesChanged)
		}, logger)
		if err != nil {
			return fmt.Errorf("watch %s: %w", cfg.PatchFile, err)
		}
		defer watcher.Close()
	}

	if !cfg.NoOpen {
		if err := browser.Open(url); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not open browser: %v\n", err)
		}
	}
	if cfg.Copy {
		if err := clipboard.WriteAll(url); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not copy URL to clipboard: %v\n", err)
		}
	}

	httpServer := &http.Server{Handler: srv.Handler()}

	// Graceful shutdown on Ctrl+C.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		fmt.Println("\nShutting down...")
		_ = httpServer.Close()
	}()

	if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// applyConfigFile loads config.yaml and fills CLI fields the user did not
// set explicitly on the command line.
func applyConfigFile(cfg *cli.Config) error {
	path := cfg.ConfigPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return err
		}
	}
	fileCfg, err := config.Load(path)
	if err != nil {
		return err
	}

	if cfg.Host == "" {
		cfg.Host = fileCfg.Host
	}
	if !cfg.Set["port"] {
		cfg.Port = fileCfg.Port
	}
	if cfg.ViewMode == "" {
		cfg.ViewMode = fileCfg.ViewMode
	}
	if !cfg.Set["db"] {
		cfg.DBPath = fileCfg.DBPath
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = fileCfg.LogLevel
	}
	if !cfg.Set["log-json"] {
		cfg.LogJSON = fileCfg.LogJSON
	}
	return nil
}

// anchorRepo finds the enclosing repository root so patchview works
// from any subdirectory, and reports the ref HEAD points at.
func anchorRepo(dir string) (*git.Repo, string, error) {
	root, err := git.RepoRoot(dir)
	if err != nil {
		return nil, "", err
	}
	ref, err := git.CurrentRef(root)
	if err != nil {
		return nil, "", err
	}
	return git.NewRepo(root), ref, nil
}

// openStore opens the patch database unless storage is disabled. The
// returned closer is safe to call when the store is nil.
func openStore(cfg *cli.Config, logger logging.Logger) (*store.Store, func(), error) {
	if cfg.Set["db"] && cfg.DBPath == "" {
		logger.Debug("patch storage disabled")
		return nil, func() {}, nil
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		var err error
		dbPath, err = config.DefaultDBPath()
		if err != nil {
			return nil, nil, err
		}
	}
	st, db, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open patch database: %w", err)
	}
	logger.Debug("patch database ready", "path", dbPath)
	return st, func() { _ = db.Close() }, nil
}

func loadPatchFile(path string) (*patch.ParsedPatch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	p, err := patch.Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return p, nil
}
