package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/coralforge/engine/internal/config"
	"github.com/coralforge/engine/internal/core/access"
	"github.com/coralforge/engine/internal/core/ecs"
	"github.com/coralforge/engine/internal/core/observer"
	"github.com/coralforge/engine/internal/core/runner"
	"github.com/coralforge/engine/internal/core/schedule"
	"github.com/coralforge/engine/internal/data"
	"github.com/coralforge/engine/internal/diag"
	"github.com/coralforge/engine/internal/persist"
	"github.com/coralforge/engine/internal/scripting"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// Demo components. Real integrations register their own.
type Position struct{ X, Y float64 }
type Velocity struct{ X, Y float64 }
type Lifetime struct{ Ticks int }

func run() error {
	// 1. Load config
	cfgPath := "config/engine.toml"
	if p := os.Getenv("ENGINE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = config.Default()
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	// 3. World with demo components and observers
	world := ecs.NewWorld()
	ecs.RegisterComponent[Position](world)
	ecs.RegisterComponent[Velocity](world)
	ecs.RegisterComponent[Lifetime](world)

	obs := observer.NewRegistry(cfg.Scheduler.CascadeLimit)
	observer.OnAdd[Position](obs, func(w *ecs.World, e ecs.Entity) {
		ecs.Insert(w, e, &Lifetime{Ticks: 600})
	})
	observer.OnRemove[Lifetime](obs, func(w *ecs.World, e ecs.Entity) {
		w.Despawn(e)
	})
	world.SetTriggerSink(obs)

	for _, e := range world.SpawnMany(64) {
		ecs.Insert(world, e, &Position{})
		ecs.Insert(world, e, &Velocity{X: 1, Y: 0.5})
	}
	obs.Flush(world)

	// 4. Systems
	systems := schedule.NewContainer()
	systems.AddFunc("integrate",
		access.NewSet(access.Write[Position](), access.Read[Velocity]()),
		func(ctx schedule.Context) error {
			return ctx.Lock(access.NewSet(access.Write[Position](), access.Read[Velocity]())).
				Execute(func(w *ecs.World) error {
					ecs.Each2(ecs.StoreFor[Position](w), ecs.StoreFor[Velocity](w),
						func(_ ecs.Entity, p *Position, v *Velocity) {
							p.X += v.X
							p.Y += v.Y
						})
					return nil
				})
		})
	systems.AddFunc("decay",
		access.NewSet(access.Write[Lifetime]()),
		func(ctx schedule.Context) error {
			return ctx.Lock(access.NewSet(access.Write[Lifetime]())).
				Execute(func(w *ecs.World) error {
					ecs.StoreFor[Lifetime](w).Each(func(e ecs.Entity, l *Lifetime) {
						l.Ticks--
						if l.Ticks <= 0 {
							ctx.Commands(func(w *ecs.World) {
								ecs.Remove[Lifetime](w, e)
							})
						}
					})
					return nil
				})
		})
	systems.AddExclusiveFunc("census", func(w *ecs.World) error {
		log.Info("world census",
			zap.Uint64("tick", w.Tick()),
			zap.Int("entities", w.Allocator().Len()))
		return nil
	})
	systems.AddEdge("integrate", "census")
	systems.AddEdge("decay", "census")

	// 5. Optional Lua conditions and schedule manifest
	var conds data.ConditionSource
	if cfg.Scripting.Dir != "" {
		lua, err := scripting.NewEngine(cfg.Scripting.Dir, log)
		if err != nil {
			return fmt.Errorf("lua engine: %w", err)
		}
		defer lua.Close()
		conds = lua
	}
	if cfg.Scheduler.Manifest != "" {
		manifest, err := data.LoadManifest(cfg.Scheduler.Manifest)
		if err != nil {
			return fmt.Errorf("load manifest: %w", err)
		}
		if err := manifest.Apply(systems, conds); err != nil {
			return fmt.Errorf("apply manifest: %w", err)
		}
		log.Info("schedule manifest applied", zap.Int("entries", manifest.Count()))
	}

	// 6. Optional report sink
	var reports *persist.ReportRepo
	if cfg.Database.DSN != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		if err := persist.RunMigrations(ctx, db.Pool); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		reports = persist.NewReportRepo(db)
	}

	// 7. Run
	r := runner.MultiThread(cfg.Scheduler.Workers,
		runner.WithLogger(log),
		runner.WithShutdownBudget(cfg.Scheduler.ShutdownBudget))
	res, err := r.RunWith(world, systems, &diag.Options{
		DetectAmbiguities: true,
		CollectTimings:    true,
	})
	if err != nil {
		return fmt.Errorf("run schedule: %w", err)
	}

	for _, serr := range res.Errors {
		log.Warn("system failed", zap.String("system", serr.System), zap.Error(serr.Err))
	}
	for _, amb := range res.Report.Ambiguities {
		log.Warn("ambiguous system pair",
			zap.String("a", amb.SystemA),
			zap.String("b", amb.SystemB),
			zap.Strings("types", amb.Types))
	}
	for _, t := range res.Report.Timings {
		log.Debug("system timing", zap.String("system", t.System), zap.Duration("took", t.Duration))
	}
	log.Info("run complete",
		zap.String("run_id", res.Report.RunID.String()),
		zap.Int("systems", systems.Len()),
		zap.Int("errors", len(res.Errors)))

	if reports != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := reports.Save(ctx, res.Report, len(res.Errors)); err != nil {
			log.Warn("save run report", zap.Error(err))
		}
	}
	return nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}
