package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	appcfg "github.com/park285/comeback-bonus/internal/config"
	"github.com/park285/comeback-bonus/internal/corpus"
	"github.com/park285/comeback-bonus/internal/metrics"
	"github.com/park285/comeback-bonus/internal/msgcat"
	"github.com/park285/comeback-bonus/internal/obslog"
	"github.com/park285/comeback-bonus/internal/pipeline"
	"github.com/park285/comeback-bonus/internal/report"
	"github.com/park285/comeback-bonus/internal/store"
)

func main() {
	app := &cli.App{
		Name:  "comeback-bonus",
		Usage: "award material comeback bonus points from a tournament PGN export",
		Flags: commonFlags(),
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "replay every game and print the bonus leaderboard",
				Flags:  commonFlags(),
				Action: runAction,
			},
			{
				Name:  "replay",
				Usage: "print the per-ply material trace of one game",
				Flags: append(commonFlags(), &cli.IntFlag{
					Name:  "index",
					Usage: "zero-based game index in the PGN file",
				}),
				Action: replayAction,
			},
		},
		Action: runAction,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("comeback-bonus: %v", err)
	}
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Usage: "YAML configuration file (environment only when unset)"},
		&cli.StringFlag{Name: "pgn", Usage: "multi-game PGN export (overrides PGN_PATH)"},
		&cli.StringFlag{Name: "structured", Usage: "companion NDJSON/JSON export used for the game count check"},
		&cli.StringSliceFlag{Name: "disqualified", Usage: "players disqualified for cheating"},
		&cli.StringSliceFlag{Name: "excluded", Usage: "players left out of the leaderboard"},
		&cli.StringFlag{Name: "redis-url", Usage: "publish standings to this Redis"},
		&cli.StringFlag{Name: "database-url", Usage: "record awards in this Postgres database"},
		&cli.StringFlag{Name: "metrics-file", Usage: "write Prometheus text metrics here"},
		&cli.StringFlag{Name: "messages-dir", Usage: "directory with message catalog overrides"},
		&cli.BoolFlag{Name: "label-openings", Usage: "log the ECO opening of every replayed game"},
	}
}

func loadConfig(c *cli.Context) (*appcfg.AppConfig, error) {
	load := appcfg.Load
	if path := c.String("config"); path != "" {
		load = func() (*appcfg.AppConfig, error) { return appcfg.LoadFile(path) }
	}
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if v := c.String("pgn"); v != "" {
		cfg.PGNPath = v
	}
	if v := c.String("structured"); v != "" {
		cfg.StructuredPath = v
	}
	if v := flagList(c, "disqualified"); len(v) > 0 {
		cfg.DisqualifiedPlayers = v
	}
	if v := flagList(c, "excluded"); len(v) > 0 {
		cfg.ExcludedPlayers = v
	}
	if v := c.String("redis-url"); v != "" {
		cfg.RedisURL = v
	}
	if v := c.String("database-url"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := c.String("metrics-file"); v != "" {
		cfg.MetricsFile = v
	}
	if v := c.String("messages-dir"); v != "" {
		cfg.MessagesDir = v
	}
	if c.Bool("label-openings") {
		cfg.LabelOpenings = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func flagList(c *cli.Context, name string) []string {
	var out []string
	for _, v := range c.StringSlice(name) {
		out = append(out, appcfg.SplitList(v)...)
	}
	return out
}

func setup(c *cli.Context) (*appcfg.AppConfig, *zap.Logger, *report.Formatter, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("config error: %w", err)
	}
	logger, err := obslog.Init(obslog.Options{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Console: cfg.Log.Console,
		ToFile:  cfg.Log.ToFile,
		File:    cfg.Log.File,
		Caller:  cfg.Log.Caller,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("logger init: %w", err)
	}
	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("message catalog: %w", err)
	}
	return cfg, logger, report.NewFormatter(cat), nil
}

func newPipeline(cfg *appcfg.AppConfig, m *metrics.Metrics, logger *zap.Logger) *pipeline.Pipeline {
	return pipeline.New(pipeline.Options{
		DisqualifiedPlayers: cfg.DisqualifiedPlayers,
		ExcludedPlayers:     cfg.ExcludedPlayers,
		IneligibleSuffix:    cfg.IneligibleSuffix,
		LabelOpenings:       cfg.LabelOpenings,
		Metrics:             m,
	}, logger)
}

func runAction(c *cli.Context) error {
	cfg, logger, formatter, err := setup(c)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	games, err := corpus.LoadFiles(cfg.PGNPath, cfg.StructuredPath)
	if err != nil {
		return err
	}
	logger.Info("corpus loaded", zap.String("pgn", cfg.PGNPath), zap.Int("games", len(games)))

	m := metrics.New()
	result, err := newPipeline(cfg, m, logger).Run(games)
	if err != nil {
		return err
	}
	if err := formatter.Write(os.Stdout, result); err != nil {
		return err
	}

	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}
	if err := publish(ctx, cfg, result, logger); err != nil {
		return err
	}

	if cfg.MetricsFile != "" {
		if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}

func publish(ctx context.Context, cfg *appcfg.AppConfig, result *pipeline.Report, logger *zap.Logger) error {
	if strings.TrimSpace(cfg.RedisURL) != "" {
		rs, err := store.NewRedisStore(cfg.RedisURL, time.Duration(cfg.LeaderboardTTLSec)*time.Second)
		if err != nil {
			return err
		}
		defer func() { _ = rs.Close() }()
		if err := rs.Publish(ctx, result); err != nil {
			return err
		}
		logger.Info("standings published", zap.String("run_id", result.RunID), zap.Int("players", len(result.Standings)))
	}
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		ps, err := store.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer func() { _ = ps.Close() }()
		if err := ps.EnsureSchema(ctx); err != nil {
			return err
		}
		if err := ps.SaveReport(ctx, result); err != nil {
			return err
		}
		logger.Info("awards recorded", zap.String("run_id", result.RunID), zap.Int("awards", result.Awarded))
	}
	return nil
}

func replayAction(c *cli.Context) error {
	cfg, logger, formatter, err := setup(c)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	games, err := corpus.LoadFiles(cfg.PGNPath, cfg.StructuredPath)
	if err != nil {
		return err
	}
	idx := c.Int("index")
	if idx < 0 || idx >= len(games) {
		return fmt.Errorf("game index %d out of range (0..%d)", idx, len(games)-1)
	}
	g := games[idx]
	fmt.Fprintf(os.Stdout, "%s  %s vs %s  %s\n", g.Reference, g.White, g.Black, g.Result)

	plies, err := newPipeline(cfg, nil, logger).TraceGame(g)
	out, ferr := formatter.Trace(plies)
	if ferr != nil {
		return ferr
	}
	fmt.Fprint(os.Stdout, out)
	return err
}
