// Command game plays headless duels: the player side is flown by a simple
// pilot against the AI, either in process or against a running server.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/pefman/mechduel/internal/ai"
	"github.com/pefman/mechduel/internal/api"
	"github.com/pefman/mechduel/internal/catalog"
	"github.com/pefman/mechduel/internal/config"
	"github.com/pefman/mechduel/internal/game"
	"github.com/pefman/mechduel/internal/logging"
)

// Build metadata injected via -ldflags at build time
var (
	buildVersion = "dev"
	buildTime    = ""
)

type options struct {
	remote  string
	mode    string
	player  string
	ai      string
	rounds  int
	matches int
	quiet   bool
}

func main() {
	var opts options
	fs := flag.CommandLine
	fs.StringVar(&opts.remote, "remote", "", "server base URL; empty runs the engine in process")
	fs.StringVar(&opts.mode, "mode", string(game.ModeDuel), "game mode (duel, horde, range, standard)")
	fs.StringVar(&opts.player, "player", "", "player loadout key")
	fs.StringVar(&opts.ai, "ai", "", "AI loadout key")
	fs.IntVar(&opts.rounds, "rounds", 30, "give up after this many rounds")
	fs.IntVar(&opts.matches, "n", 1, "number of matches to play")
	fs.BoolVar(&opts.quiet, "quiet", false, "print only the results")
	cfg, err := config.ParseConfig(fs, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "game: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, opts options, stdout io.Writer) error {
	logger, err := logging.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logger.Debug("game: start", zap.String("version", buildVersion), zap.String("built", buildTime))

	var b backend
	if opts.remote != "" {
		c := api.NewClient(opts.remote)
		if err := c.Health(ctx); err != nil {
			return fmt.Errorf("server %s: %w", opts.remote, err)
		}
		b = c
	} else {
		cat, err := catalog.Load()
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		b = newLocal(game.NewController(cat, append(ai.Planners(), game.WithLogger(logger))...), cfg.Seed)
	}

	out := stdout
	if opts.quiet {
		out = nil
	}
	p := &pilot{b: b, out: out, log: logger}
	req := api.CreateMatchRequest{
		Mode:          game.Mode(opts.mode),
		PlayerLoadout: opts.player,
		AILoadout:     opts.ai,
		Seed:          cfg.Seed,
	}
	wins := map[game.GameOver]int{}
	for i := 0; i < max(1, opts.matches); i++ {
		m, err := p.play(ctx, req, opts.rounds)
		if err != nil {
			return err
		}
		result := m.GameOver
		if result == game.GameRunning {
			result = "unfinished"
		}
		wins[result]++
		fmt.Fprintf(stdout, "match %s: %s after %d rounds\n", m.ID, result, m.Round)
		if st, err := b.Stats(ctx, m.ID); err == nil && st.Match != nil {
			for id, side := range st.Match.Sides {
				fmt.Fprintf(stdout, "  %s (%s): %d attacks, %d damaged, %d destroyed, %d link drained\n",
					side.Name, id, side.Attacks, side.PartsDamaged, side.PartsDestroyed, side.LinkDrained)
			}
		}
	}
	if opts.matches > 1 {
		fmt.Fprintf(stdout, "results: %v\n", wins)
	}
	return nil
}
