// Command astindex is a thin demo binary over the AST index core: it
// loads configuration, builds a parser bank and AST DB, runs the
// indexer over a project root, and exposes the Query Surface as
// subcommands. It is deliberately not a server — no HTTP, no MCP, no
// chat glue — those are external-collaborator concerns the core
// doesn't own.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/astindex/internal/astdb"
	"github.com/standardbeagle/astindex/internal/chunker"
	"github.com/standardbeagle/astindex/internal/config"
	"github.com/standardbeagle/astindex/internal/debug"
	"github.com/standardbeagle/astindex/internal/indexer"
	"github.com/standardbeagle/astindex/internal/parser"
	"github.com/standardbeagle/astindex/internal/query"
	"github.com/standardbeagle/astindex/internal/types"
	"github.com/standardbeagle/astindex/internal/version"
)

func loadConfig(c *cli.Context) (*config.Config, error) {
	root := c.String("root")
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root path %q: %w", root, err)
	}

	cfg, err := config.LoadKDL(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to load .astindex.kdl: %w", err)
	}
	if cfg == nil {
		cfg = config.Default(absRoot)
	}

	if includeFlags := c.StringSlice("include"); len(includeFlags) > 0 {
		cfg.Include = includeFlags
	}
	if excludeFlags := c.StringSlice("exclude"); len(excludeFlags) > 0 {
		cfg.Exclude = append(cfg.Exclude, excludeFlags...)
	}
	if dataDir := c.String("data-dir"); dataDir != "" {
		cfg.Project.DataDir = dataDir
	}
	if c.Bool("no-watch") {
		cfg.Index.WatchMode = false
	}
	if maxFiles := c.Int("ast-max-files"); maxFiles > 0 {
		cfg.Index.AstMaxFiles = maxFiles
	}

	return cfg, nil
}

// openIndex wires a config into a running Indexer: construction is
// explicit and teardown is the caller's responsibility, per spec.md
// §9's "no lazy initialization" stance on the core's global state.
func openIndex(cfg *config.Config) (*astdb.DB, *parser.Bank, *indexer.Indexer, error) {
	db, err := astdb.Open(cfg.Project.DataDir)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open ast db: %w", err)
	}

	bank := parser.NewBank()
	ix := indexer.New(cfg, bank, db)
	return db, bank, ix, nil
}

// scanOnce walks cfg.Project.Root and enqueues every file ix.ShouldIndex
// admits. This is the "initial scan" half of the indexer's lifecycle;
// StartWatching covers the incremental half — both filter through the
// same ShouldIndex decision so a gitignored or excluded file never
// shows up via one path and not the other.
func scanOnce(cfg *config.Config, ix *indexer.Indexer) error {
	return filepath.WalkDir(cfg.Project.Root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if ix.ShouldIndex(path) {
			ix.Enqueue(path)
		}
		return nil
	})
}

func runIndex(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	db, _, ix, err := openIndex(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		debug.LogIndexing("received shutdown signal")
		cancel()
	}()

	go ix.Run(ctx)

	if err := scanOnce(cfg, ix); err != nil {
		return fmt.Errorf("initial scan failed: %w", err)
	}

	if err := ix.StartWatching(cfg.Project.Root); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	if !cfg.Index.WatchMode {
		// One-shot mode: wait for the queue to drain once, then stop.
		for ix.Status().Snapshot().State != types.StateIdle {
			time.Sleep(20 * time.Millisecond)
		}
		cancel()
		ix.Stop()
		return printStatus(ix)
	}

	<-ctx.Done()
	ix.Stop()
	return nil
}

func printStatus(ix *indexer.Indexer) error {
	snap := ix.Status().Snapshot()
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		State                string `json:"state"`
		FilesTotal           int    `json:"files_total"`
		AstIndexFilesTotal   int    `json:"ast_index_files_total"`
		AstIndexSymbolsTotal int    `json:"ast_index_symbols_total"`
		AstIndexUsagesTotal  int    `json:"ast_index_usages_total"`
		AstMaxFilesHit       bool   `json:"ast_max_files_hit"`
	}{
		State:                snap.State.String(),
		FilesTotal:           snap.FilesTotal,
		AstIndexFilesTotal:   snap.AstIndexFilesTotal,
		AstIndexSymbolsTotal: snap.AstIndexSymbolsTotal,
		AstIndexUsagesTotal:  snap.AstIndexUsagesTotal,
		AstMaxFilesHit:       snap.AstMaxFilesHit,
	})
}

// buildSurface opens the DB read-only-in-spirit (queries never write)
// and hands it to query.Surface along with a fresh parser bank and
// tokenizer for on-demand chunking.
func buildSurface(cfg *config.Config) (*astdb.DB, *query.Surface, error) {
	db, err := astdb.Open(cfg.Project.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open ast db: %w", err)
	}
	bank := parser.NewBank()
	tokenizer := chunker.NewDefaultTokenizer()
	status := types.NewStatusPublisher()
	surface := query.New(db, bank, tokenizer, cfg.Chunker, status, cfg.Project.Root)
	return db, surface, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runDefinitions(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	db, surface, err := buildSurface(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	defs, err := surface.Definitions(c.Args().First())
	if err != nil {
		return err
	}
	return printJSON(defs)
}

func runUsages(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	db, surface, err := buildSurface(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	usages, err := surface.Usages(c.Args().First())
	if err != nil {
		return err
	}
	return printJSON(usages)
}

func runFileSymbols(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	db, surface, err := buildSurface(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	defs, err := surface.FileSymbols(c.Args().First())
	if err != nil {
		return err
	}
	return printJSON(defs)
}

func runSymbolsAt(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	db, surface, err := buildSurface(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	defs, err := surface.SymbolsAt(c.Args().Get(0), c.Int("line"))
	if err != nil {
		return err
	}
	return printJSON(defs)
}

func runChunks(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	db, surface, err := buildSurface(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	chunks, err := surface.Chunks(c.Args().First())
	if err != nil {
		return err
	}
	return printJSON(chunks)
}

func main() {
	app := &cli.App{
		Name:                   "astindex",
		Usage:                  "AST-aware code indexing: parse, resolve usages, and chunk for retrieval",
		Version:                version.Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Project root directory to index",
				Value:   ".",
			},
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "AST DB directory (empty = in-memory)",
			},
			&cli.StringSliceFlag{
				Name:  "include",
				Usage: "Include files matching glob patterns",
			},
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "Exclude files matching glob patterns",
			},
			&cli.IntFlag{
				Name:  "ast-max-files",
				Usage: "Cap on indexed file count (0 = unbounded)",
			},
			&cli.BoolFlag{
				Name:  "no-watch",
				Usage: "Disable the fsnotify watcher; scan once and exit",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "index",
				Usage: "Scan the project root and index it (watches for changes unless --no-watch)",
				Action: runIndex,
			},
			{
				Name:      "definitions",
				Usage:     "Look up definitions by short or full path",
				ArgsUsage: "<path>",
				Action:    runDefinitions,
			},
			{
				Name:      "usages",
				Usage:     "List usage sites for a definition",
				ArgsUsage: "<path>",
				Action:    runUsages,
			},
			{
				Name:      "file-symbols",
				Usage:     "List every definition in a file",
				ArgsUsage: "<cpath>",
				Action:    runFileSymbols,
			},
			{
				Name:      "symbols-at",
				Usage:     "List definitions enclosing a source line, innermost last",
				ArgsUsage: "<cpath>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "line", Usage: "1-based source line", Required: true},
				},
				Action: runSymbolsAt,
			},
			{
				Name:      "chunks",
				Usage:     "Chunk a file for retrieval",
				ArgsUsage: "<cpath>",
				Action:    runChunks,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "astindex:", err)
		os.Exit(1)
	}
}
