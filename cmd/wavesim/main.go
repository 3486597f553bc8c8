package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fgferre/asteroids-roguefield/internal/config"
	"github.com/fgferre/asteroids-roguefield/internal/core/event"
	"github.com/fgferre/asteroids-roguefield/internal/data"
	"github.com/fgferre/asteroids-roguefield/internal/persist"
	"github.com/fgferre/asteroids-roguefield/internal/replay"
	"github.com/fgferre/asteroids-roguefield/internal/scripting"
	"github.com/fgferre/asteroids-roguefield/internal/variant"
	"github.com/fgferre/asteroids-roguefield/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(sessionID string, seed uint64) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m          wavesim  ·  asteroid waves        \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mSession:\033[0m %s \033[90m(seed: %d)\033[0m\n\n", sessionID, seed)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Session ───────────────────────────────────────────────────────

type options struct {
	resume     bool
	verify     bool
	replayOnly bool
	maxTicks   int
}

func run() error {
	var opts options
	flag.BoolVar(&opts.resume, "resume", false, "resume from the session's latest snapshot")
	flag.BoolVar(&opts.verify, "verify", false, "replay the journal after the session and compare digests")
	flag.BoolVar(&opts.replayOnly, "replay", false, "replay the stored journal of the session and exit")
	flag.IntVar(&opts.maxTicks, "ticks", -1, "override session.max_ticks")
	flag.Parse()

	// 1. Load config
	cfgPath := "config/wavesim.toml"
	if p := os.Getenv("WAVESIM_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.maxTicks >= 0 {
		cfg.Session.MaxTicks = opts.maxTicks
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Session.ID, cfg.Session.Seed)

	// 3. Load data and scripts
	printSection("Data")

	table, err := data.LoadVariantTable(cfg.Data.Variants)
	if err != nil {
		return fmt.Errorf("load variant table: %w", err)
	}
	printStat("Variants", table.Count())
	variants := variant.NewEngine(table, log.Named("variant"))

	lua, err := scripting.NewEngine(cfg.Data.ScriptsDir, log.Named("lua"))
	if err != nil {
		return fmt.Errorf("lua engine: %w", err)
	}
	defer lua.Close()
	printOK("Reward scripts loaded")
	fmt.Println()

	// 4. Open the snapshot store
	printSection("Store")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := persist.Open(ctx, cfg.Store, log.Named("persist"))
	cancel()
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer store.Close()
	printOK(fmt.Sprintf("Store ready (%s)", cfg.Store.Driver))
	fmt.Println()

	deps := world.Deps{
		Config:   cfg,
		Log:      log.Named("world"),
		Variants: variants,
		Arena:    world.NewStaticArena(cfg.Arena),
		Rewards:  func() world.Reward { return lua },
	}

	if opts.replayOnly {
		return replayStored(store, deps, cfg.Session.ID, log)
	}

	// 5. Build the hub
	hub, err := world.New(deps)
	if err != nil {
		return fmt.Errorf("world: %w", err)
	}
	defer hub.Close()

	var rec *replay.Recorder
	if opts.resume {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		snap, err := store.LatestSnapshot(ctx, cfg.Session.ID)
		cancel()
		switch {
		case errors.Is(err, persist.ErrNotFound):
			log.Info("no snapshot to resume, starting fresh", zap.String("session", cfg.Session.ID))
		case err != nil:
			return fmt.Errorf("load snapshot: %w", err)
		default:
			if err := hub.Import(snap); err != nil {
				log.Warn("snapshot rejected, starting fresh", zap.Error(err))
			} else {
				printOK(fmt.Sprintf("Resumed at tick %d, wave %d", snap.Tick, hub.Wave().Number))
			}
		}
	}
	if hub.Stats().Ticks == 0 {
		rec, err = replay.NewRecorder(hub)
		if err != nil {
			return err
		}
	} else if opts.verify {
		log.Warn("resumed sessions have no journal, -verify ignored")
		opts.verify = false
	}

	watchEvents(hub.Bus(), log.Named("session"))

	// 6. Start session loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	printSection("Session")
	if cfg.Session.Headless {
		printReady("Headless loop started")
	} else {
		printReady(fmt.Sprintf("Session loop started (tick: %s)", cfg.Session.TickRate))
	}
	fmt.Println()

	s := &session{
		cfg:   cfg,
		hub:   hub,
		rec:   rec,
		store: store,
		pilot: newAutopilot(hub, deps.Arena),
		log:   log,
	}
	if err := s.loop(shutdownCh); err != nil {
		return err
	}

	// 7. Persist and summarise
	s.save()
	if rec != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := store.SaveJournal(ctx, cfg.Session.ID, rec.Journal(), rec.Sum64()); err != nil {
			log.Error("save journal failed", zap.Error(err))
		}
		cancel()
	}
	printSummary(hub.Stats(), hub.Wave().Number, lua.Ledger())

	if opts.verify && rec != nil {
		verifyDeps := deps
		verifyDeps.Rewards = nil
		verifyDeps.Log = zap.NewNop()
		res, err := replay.Verify(context.Background(), verifyDeps, rec.Journal(), rec.Sum64())
		if err != nil {
			return fmt.Errorf("verify: %w", err)
		}
		printOK(fmt.Sprintf("Replay verified: %d events, digest %016x", res.Events, res.Digest))
	}
	return nil
}

type session struct {
	cfg   *config.Config
	hub   *world.Hub
	rec   *replay.Recorder
	store persist.Store
	pilot *autopilot
	log   *zap.Logger
}

// loop ticks until max_ticks is reached or a signal arrives.
func (s *session) loop(shutdownCh <-chan os.Signal) error {
	var tickC <-chan time.Time
	if !s.cfg.Session.Headless {
		ticker := time.NewTicker(s.cfg.Session.TickRate)
		defer ticker.Stop()
		tickC = ticker.C
	}

	for {
		if s.cfg.Session.Headless {
			select {
			case sig := <-shutdownCh:
				s.log.Info("shutdown signal received", zap.String("signal", sig.String()))
				return nil
			default:
			}
		} else {
			select {
			case <-tickC:
			case sig := <-shutdownCh:
				s.log.Info("shutdown signal received", zap.String("signal", sig.String()))
				return nil
			}
		}

		done, err := s.step()
		if err != nil || done {
			return err
		}
	}
}

// step runs one tick. It reports true once max_ticks is reached.
func (s *session) step() (bool, error) {
	tick := s.hub.Stats().Ticks
	if s.rec != nil {
		s.pilot.step(s.rec, tick)
		if err := s.rec.Tick(s.cfg.Session.TickRate); err != nil {
			return false, err
		}
	} else {
		s.pilot.step(s.hub, tick)
		if err := s.hub.Tick(s.cfg.Session.TickRate); err != nil {
			return false, err
		}
	}
	tick++

	if every := s.cfg.Session.SnapshotEvery; every > 0 && tick%uint64(every) == 0 {
		s.save()
	}
	return s.cfg.Session.MaxTicks > 0 && tick >= uint64(s.cfg.Session.MaxTicks), nil
}

func (s *session) save() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	snap := s.hub.Export()
	if err := s.store.SaveSnapshot(ctx, s.cfg.Session.ID, snap); err != nil {
		s.log.Error("save snapshot failed", zap.Uint64("tick", snap.Tick), zap.Error(err))
		return
	}
	s.log.Debug("snapshot saved", zap.Uint64("tick", snap.Tick), zap.Int("live", len(snap.Entities)))
}

// replayStored verifies the session's stored journal against its digest.
func replayStored(store persist.Store, deps world.Deps, sessionID string, log *zap.Logger) error {
	ctx := context.Background()
	j, digest, err := store.LoadJournal(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load journal: %w", err)
	}
	deps.Rewards = nil
	res, err := replay.Verify(ctx, deps, j, digest)
	if err != nil {
		return err
	}
	log.Info("journal verified",
		zap.String("session", sessionID),
		zap.Int("frames", len(j.Frames)),
		zap.Uint64("ticks", res.Ticks),
		zap.Int("wave", res.Wave),
	)
	printOK(fmt.Sprintf("Replay verified: %d frames, digest %016x", len(j.Frames), res.Digest))
	return nil
}

func watchEvents(bus *event.Bus, log *zap.Logger) {
	event.Subscribe(bus, func(ev event.WaveStarted) {
		log.Info("wave started", zap.Int("wave", ev.Wave), zap.Int("quota", ev.Quota))
	})
	event.Subscribe(bus, func(ev event.WaveCompleted) {
		log.Info("wave completed",
			zap.Int("wave", ev.Wave),
			zap.Int("spawned", ev.Spawned),
			zap.Int("killed", ev.Killed),
			zap.Bool("timed_out", ev.TimedOut),
		)
	})
	event.Subscribe(bus, func(ev event.OrchestratorFallback) {
		log.Warn("orchestrator fell back to inline", zap.String("from", ev.From), zap.String("reason", ev.Reason))
	})
}

func printSummary(st world.Stats, waveNo int, ledger scripting.Ledger) {
	fmt.Println()
	printSection("Summary")
	printStat("Ticks", int(st.Ticks))
	printStat("Wave reached", waveNo)
	printStat("Waves cleared", st.WavesCleared)
	printStat("Waves timed out", st.WavesTimedOut)
	printStat("Spawned", st.Spawned)
	printStat("Destroyed", st.Destroyed)
	printStat("Fragments", st.Fragments)
	printStat("Explosions", st.Explosions)
	printStat("Score", ledger.Score)
	printStat("Credits", ledger.Credits)
	fmt.Println()
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
