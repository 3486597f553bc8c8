// wavectl inspects what wavesim left in the snapshot store.
//
// Usage:
//
//	go run ./cmd/wavectl <command> [-config path] [-session id] [-out path]
//
// Commands: snapshots, latest, journal, verify
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fgferre/asteroids-roguefield/internal/config"
	"github.com/fgferre/asteroids-roguefield/internal/data"
	"github.com/fgferre/asteroids-roguefield/internal/persist"
	"github.com/fgferre/asteroids-roguefield/internal/replay"
	"github.com/fgferre/asteroids-roguefield/internal/variant"
	"github.com/fgferre/asteroids-roguefield/internal/world"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// YAML output structs
// ---------------------------------------------------------------------------

type snapshotListYAML struct {
	Session   string              `yaml:"session"`
	Snapshots []snapshotEntryYAML `yaml:"snapshots"`
}

type snapshotEntryYAML struct {
	Tick    uint64 `yaml:"tick"`
	Wave    int    `yaml:"wave"`
	Live    int    `yaml:"live"`
	Created string `yaml:"created"`
}

type snapshotYAML struct {
	Session      string       `yaml:"session"`
	Tick         uint64       `yaml:"tick"`
	Seed         uint64       `yaml:"seed"`
	Orchestrator string       `yaml:"orchestrator"`
	FellBack     bool         `yaml:"fell_back,omitempty"`
	Wave         waveYAML     `yaml:"wave"`
	Stats        statsYAML    `yaml:"stats"`
	Entities     []entityYAML `yaml:"entities"`
}

type waveYAML struct {
	Number  int    `yaml:"number"`
	Phase   string `yaml:"phase"`
	Total   int    `yaml:"total"`
	Spawned int    `yaml:"spawned"`
	Killed  int    `yaml:"killed"`
}

type statsYAML struct {
	Spawned       int            `yaml:"spawned"`
	Destroyed     int            `yaml:"destroyed"`
	Fragments     int            `yaml:"fragments"`
	WavesCleared  int            `yaml:"waves_cleared"`
	WavesTimedOut int            `yaml:"waves_timed_out"`
	Explosions    int            `yaml:"explosions"`
	VariantSpawns map[string]int `yaml:"variant_spawns"`
}

type entityYAML struct {
	ID         uint64  `yaml:"id"`
	Parent     uint64  `yaml:"parent,omitempty"`
	Size       string  `yaml:"size"`
	Variant    string  `yaml:"variant"`
	Wave       int     `yaml:"wave"`
	Generation int     `yaml:"generation,omitempty"`
	HP         float64 `yaml:"hp"`
	X          float64 `yaml:"x"`
	Y          float64 `yaml:"y"`
}

type journalYAML struct {
	Session      string `yaml:"session"`
	Seed         uint64 `yaml:"seed"`
	Orchestrator string `yaml:"orchestrator"`
	Frames       int    `yaml:"frames"`
	Hits         int    `yaml:"hits"`
	Switches     int    `yaml:"orchestrator_switches"`
	Duration     string `yaml:"duration"`
	Digest       string `yaml:"digest"`
}

func snapshotToYAML(session string, s *world.Snapshot) snapshotYAML {
	out := snapshotYAML{
		Session:      session,
		Tick:         s.Tick,
		Seed:         s.RootSeed,
		Orchestrator: s.Orchestrator,
		FellBack:     s.FellBack,
		Wave: waveYAML{
			Number:  s.Wave.Number,
			Phase:   s.Wave.Phase.String(),
			Total:   s.Wave.Total,
			Spawned: s.Wave.Spawned,
			Killed:  s.Wave.Killed,
		},
		Stats: statsYAML{
			Spawned:       s.Stats.Spawned,
			Destroyed:     s.Stats.Destroyed,
			Fragments:     s.Stats.Fragments,
			WavesCleared:  s.Stats.WavesCleared,
			WavesTimedOut: s.Stats.WavesTimedOut,
			Explosions:    s.Stats.Explosions,
			VariantSpawns: s.Stats.VariantSpawns,
		},
	}
	for _, e := range s.Entities {
		out.Entities = append(out.Entities, entityYAML{
			ID:         uint64(e.ID),
			Parent:     uint64(e.Parent),
			Size:       e.Size.String(),
			Variant:    e.Variant,
			Wave:       e.Wave,
			Generation: e.Generation,
			HP:         e.HP,
			X:          e.Kinematics.Pos.X,
			Y:          e.Kinematics.Pos.Y,
		})
	}
	return out
}

func journalToYAML(session string, j *replay.Journal, digest uint64) journalYAML {
	out := journalYAML{
		Session:      session,
		Seed:         j.Seed,
		Orchestrator: j.Orchestrator,
		Frames:       len(j.Frames),
		Digest:       fmt.Sprintf("%016x", digest),
	}
	var total time.Duration
	for _, f := range j.Frames {
		out.Hits += len(f.Hits)
		if f.Orchestrator != "" {
			out.Switches++
		}
		total += f.Dt
	}
	out.Duration = total.String()
	return out
}

// ---------------------------------------------------------------------------
// Commands
// ---------------------------------------------------------------------------

type env struct {
	cfg     *config.Config
	store   persist.Store
	session string
	out     string
}

func (e *env) write(v any) error {
	b, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	if e.out == "" {
		_, err = os.Stdout.Write(b)
		return err
	}
	if err := os.WriteFile(e.out, b, 0o644); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", e.out)
	return nil
}

func listSnapshots(ctx context.Context, e *env) error {
	metas, err := e.store.ListSnapshots(ctx, e.session)
	if err != nil {
		return err
	}
	out := snapshotListYAML{Session: e.session}
	for _, m := range metas {
		out.Snapshots = append(out.Snapshots, snapshotEntryYAML{
			Tick:    m.Tick,
			Wave:    m.Wave,
			Live:    m.Live,
			Created: m.CreatedAt.Format(time.RFC3339),
		})
	}
	return e.write(out)
}

func dumpLatest(ctx context.Context, e *env) error {
	snap, err := e.store.LatestSnapshot(ctx, e.session)
	if err != nil {
		return err
	}
	if snap.Wave == nil || snap.Stats == nil {
		return fmt.Errorf("snapshot at tick %d is incomplete", snap.Tick)
	}
	return e.write(snapshotToYAML(e.session, snap))
}

func dumpJournal(ctx context.Context, e *env) error {
	j, digest, err := e.store.LoadJournal(ctx, e.session)
	if err != nil {
		return err
	}
	return e.write(journalToYAML(e.session, j, digest))
}

func verifyJournal(ctx context.Context, e *env) error {
	j, digest, err := e.store.LoadJournal(ctx, e.session)
	if err != nil {
		return err
	}
	table, err := data.LoadVariantTable(e.cfg.Data.Variants)
	if err != nil {
		return err
	}
	res, err := replay.Verify(ctx, world.Deps{
		Config:   e.cfg,
		Log:      zap.NewNop(),
		Variants: variant.NewEngine(table, zap.NewNop()),
	}, j, digest)
	if err != nil {
		return err
	}
	fmt.Printf("OK: %d frames, %d events, wave %d, digest %016x\n", len(j.Frames), res.Events, res.Wave, res.Digest)
	return nil
}

func printUsage() {
	fmt.Println("Usage: wavectl <command> [-config path] [-session id] [-out path]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  snapshots  List stored snapshots of the session")
	fmt.Println("  latest     Dump the latest snapshot as YAML")
	fmt.Println("  journal    Summarise the stored replay journal")
	fmt.Println("  verify     Replay the stored journal and check its digest")
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	if cmd == "-h" || cmd == "--help" || cmd == "help" {
		printUsage()
		return
	}

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	cfgPath := fs.String("config", "config/wavesim.toml", "config file")
	session := fs.String("session", "", "session id (default: session.id from config)")
	out := fs.String("out", "", "write YAML here instead of stdout")
	_ = fs.Parse(os.Args[2:])

	commands := map[string]func(context.Context, *env) error{
		"snapshots": listSnapshots,
		"latest":    dumpLatest,
		"journal":   dumpJournal,
		"verify":    verifyJournal,
	}
	fn, ok := commands[cmd]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
	if *session == "" {
		*session = cfg.Session.ID
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, err := persist.Open(ctx, cfg.Store, zap.NewNop())
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}

	err = fn(ctx, &env{cfg: cfg, store: store, session: *session, out: *out})
	store.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR [%s]: %v\n", cmd, err)
		os.Exit(1)
	}
}
