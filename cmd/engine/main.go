package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/stepmix/varadero/internal/catalog"
	"github.com/stepmix/varadero/internal/config"
	"github.com/stepmix/varadero/internal/nodes"
	"github.com/stepmix/varadero/internal/pipeline"
)

// defaultPipeline converts everything to 4K and 5K, capped at 6
// simultaneous keys, and writes the results.
const defaultPipeline = `
pipeline:
  - load: {}
  - filter:
      convert:
        into: [dance-single, pump-single]
        avoid_shuffle: true
  - simultaneous: {max: 6}
  - write: {}
`

func main() {
	cfg := config.Parse()

	// Setup structured logger
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if cfg.Root == "" {
		logger.Error("no library root given (use -root or STEPMIX_ROOT)")
		os.Exit(1)
	}

	// Ensure data directory exists
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Error("failed to create data directory", "path", cfg.DataDir, "error", err)
		os.Exit(1)
	}

	// Open conversion catalog
	db, err := catalog.Open(cfg.DataDir, logger)
	if err != nil {
		logger.Error("failed to open catalog", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := run(cfg, db, logger); err != nil {
		logger.Error("conversion failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, db *catalog.DB, logger *slog.Logger) error {
	data := []byte(defaultPipeline)
	if cfg.PipelinePath != "" {
		var err error
		data, err = os.ReadFile(cfg.PipelinePath)
		if err != nil {
			return fmt.Errorf("read pipeline: %w", err)
		}
	}
	declared, err := nodes.ParsePipeline(data)
	if err != nil {
		return err
	}

	schedule, err := pipeline.Resolve(declared)
	if err != nil {
		return fmt.Errorf("resolve pipeline: %w", err)
	}

	// Wire catalog and logger into the endpoint nodes.
	for _, node := range schedule {
		switch n := node.(type) {
		case *nodes.ChartLoad:
			n.Logger = logger
			n.Catalog = db
			if n.Rescan || cfg.Rescan {
				n.Rescan = true
			}
		case *nodes.SimfileWrite:
			n.Logger = logger
			n.Catalog = db
		}
	}

	store := pipeline.NewStore(logger)
	store.GlobalSet("root", cfg.Root)
	store.GlobalSet("output", cfg.Output)

	logger.Info("running pipeline",
		"nodes", len(schedule),
		"root", cfg.Root,
		"output", cfg.Output,
	)
	for i, node := range schedule {
		logger.Debug("dispatching node", "index", i, "type", fmt.Sprintf("%T", node))
		if err := node.Apply(store); err != nil {
			return fmt.Errorf("node %d (%T): %w", i, node, err)
		}
		if cfg.Check {
			if err := store.Check(); err != nil {
				return fmt.Errorf("after node %d (%T): %w", i, node, err)
			}
		}
	}
	logger.Info("pipeline finished")
	return nil
}
