// lazysearch is a UCI chess engine built around a lazy SMP search.
package main

import (
	"errors"
	"flag"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"
	"runtime/pprof"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hailam/lazysearch/internal/config"
	"github.com/hailam/lazysearch/internal/engine"
	"github.com/hailam/lazysearch/internal/shell"
	"github.com/hailam/lazysearch/internal/storage"
	"github.com/hailam/lazysearch/internal/uci"
)

var (
	configPath = flag.String("config", "", "path to a lazysearch.yaml config file")
	shellMode  = flag.Bool("shell", false, "start the interactive analysis shell instead of UCI")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
	pprofAddr  = flag.String("pprof", "", "serve net/http/pprof on this address, e.g. localhost:6060")
)

func main() {
	flag.Parse()

	// stdout belongs to the protocol
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("config-load-failed")
	}
	zerolog.SetGlobalLevel(cfg.Level())

	// Start CPU profiling if requested (via flag or environment variable)
	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			log.Fatal().Err(err).Msg("could-not-create-cpu-profile")
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal().Err(err).Msg("could-not-start-cpu-profile")
		}
		defer pprof.StopCPUProfile()
		log.Info().Str("path", profilePath).Msg("cpu-profiling")
	}

	if *pprofAddr != "" {
		go func() {
			log.Info().Str("addr", *pprofAddr).Msg("pprof-listening")
			if err := http.ListenAndServe(*pprofAddr, nil); err != nil {
				log.Error().Err(err).Msg("pprof-server-failed")
			}
		}()
	}

	var store *storage.Storage
	if cfg.Persist {
		store = openStore(cfg)
		if store != nil {
			defer store.Close()
		}
	}

	eng := engine.NewEngine(engineOptions(cfg))

	if *shellMode {
		historyFile := ""
		if dir, err := storage.GetDataDir(); err == nil {
			historyFile = filepath.Join(dir, "shell_history")
		}
		if err := shell.New(eng, store, os.Stdout).Loop(historyFile); err != nil {
			log.Error().Err(err).Msg("shell-failed")
		}
		return
	}

	if err := uci.New(eng, cfg, store, os.Stdout).Run(os.Stdin); err != nil {
		log.Error().Err(err).Msg("uci-input-failed")
	}
}

// openStore opens the database and applies the options saved by an
// earlier session. A failure only disables persistence.
func openStore(cfg *config.Config) *storage.Storage {
	store, err := storage.Open(cfg.DataDir)
	if err != nil {
		log.Warn().Err(err).Msg("storage-disabled")
		return nil
	}

	stored, err := store.LoadOptions()
	switch {
	case err == nil:
		cfg.ApplyStored(stored)
		log.Debug().Time("updated", stored.UpdatedAt).Msg("stored-options-applied")
	case !errors.Is(err, storage.ErrNotFound):
		log.Warn().Err(err).Msg("stored-options-unreadable")
	}
	return store
}

func engineOptions(cfg *config.Config) engine.Options {
	opts := engine.DefaultOptions()
	opts.HashMB = cfg.HashMB
	opts.Threads = cfg.Threads
	opts.MultiPV = cfg.MultiPV
	opts.MoveOverhead = cfg.MoveOverhead
	opts.Ponder = cfg.Ponder
	opts.Tablebase = cfg.Tablebase()
	opts.TBProbeLimit = cfg.SyzygyProbeLimit
	opts.TBProbeDepth = cfg.SyzygyProbeDepth
	opts.TBRule50 = cfg.Syzygy50MoveRule
	return opts
}
