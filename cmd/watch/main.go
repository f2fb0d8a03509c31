// Command watch follows live match state from a courtside server and prints
// every state it sees as one JSON line on stdout.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/freeeve/courtside/internal/model"
	"github.com/freeeve/courtside/internal/realtime"
	"github.com/freeeve/courtside/internal/stateclient"
)

func main() {
	var (
		baseURL  string
		token    string
		interval time.Duration
		finish   bool
		debug    bool
	)

	flag.StringVar(&baseURL, "url", envOr("COURTSIDE_URL", "http://localhost:8009/api/v1"), "API base URL")
	flag.StringVar(&token, "token", os.Getenv("COURTSIDE_TOKEN"), "Bearer token (or COURTSIDE_TOKEN)")
	flag.DurationVar(&interval, "interval", realtime.DefaultPollInterval, "Poll interval")
	flag.BoolVar(&finish, "finish", false, "Mark the matches FINISHED and exit")
	flag.BoolVar(&debug, "debug", false, "Debug logging")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] match-id...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	matchIDs := flag.Args()
	if len(matchIDs) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, stateclient.New(baseURL, token), interval, matchIDs, finish, os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("Watch failed")
	}
}

func run(ctx context.Context, source realtime.StateSource, interval time.Duration, matchIDs []string, finish bool, out io.Writer) error {
	rt := realtime.NewService(source, interval, log.Logger)
	defer rt.Close()

	p := &printer{enc: json.NewEncoder(out)}
	observers := make(map[string]realtime.Observer, len(matchIDs))
	for _, id := range matchIDs {
		observers[id] = realtime.NewObserver(p.print)
	}
	defer func() {
		for id, obs := range observers {
			rt.Unsubscribe(id, obs)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	for id, obs := range observers {
		g.Go(func() error {
			err := rt.Subscribe(gctx, id, obs)
			if errors.Is(err, realtime.ErrStateFetch) {
				// Still subscribed; the poller keeps trying.
				log.Warn().Err(err).Str("matchId", id).Msg("Initial state fetch failed")
				return nil
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Int("matches", len(matchIDs)).Dur("interval", interval).Msg("Watching")

	if finish {
		g, gctx := errgroup.WithContext(ctx)
		for _, id := range matchIDs {
			g.Go(func() error {
				_, err := rt.PushUpdate(gctx, id, model.StatusPatch(model.StatusFinished))
				return err
			})
		}
		return g.Wait()
	}

	<-ctx.Done()
	log.Info().Msg("Shutting down...")
	return nil
}

// printer serializes observer output; observers for different matches run
// on different poller goroutines.
type printer struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func (p *printer) print(st *model.MatchState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enc.Encode(st); err != nil {
		log.Error().Err(err).Str("matchId", st.MatchID).Msg("Failed to write state")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
