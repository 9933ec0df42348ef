// Command rcx5sync pairs with a Polar RCX5 DataLink dongle, reads every
// recorded training session off the watch, decodes each one and writes it
// to disk as JSON or as a gzip-packed archive.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"rcx5sync/internal/config"
	"rcx5sync/internal/decoder"
	"rcx5sync/internal/export"
	"rcx5sync/internal/transport"
)

var opt struct {
	OutputDir string
	Format    string
	LogLevel  string
	ListOnly  bool
	Pretty    bool
	Help      bool
}

func init() {
	pflag.StringVarP(&opt.OutputDir, "output", "o", "", "directory to write decoded sessions to (default from config)")
	pflag.StringVarP(&opt.Format, "format", "f", "", `output format, "json" or "packed" (default from config)`)
	pflag.StringVarP(&opt.LogLevel, "log-level", "l", "", "zerolog level: debug, info, warn, error (default from config)")
	pflag.BoolVar(&opt.ListOnly, "list", false, "list session count and sizes without downloading")
	pflag.BoolVarP(&opt.Pretty, "pretty", "p", true, "use a human-readable console log instead of JSON lines")
	pflag.BoolVarP(&opt.Help, "help", "h", false, "show this help text")
}

func main() {
	pflag.Parse()
	if opt.Help {
		fmt.Printf("usage: %s [options]\n\noptions:\n%s", os.Args[0], pflag.CommandLine.FlagUsages())
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: load config: %v\n", err)
		os.Exit(1)
	}
	if opt.OutputDir != "" {
		cfg.OutputDir = opt.OutputDir
	}
	if opt.Format != "" {
		cfg.Format = opt.Format
	}
	if opt.LogLevel != "" {
		cfg.LogLevel = opt.LogLevel
	}

	log := buildLogger(cfg.LogLevel, opt.Pretty)

	if !transport.IsDonglePresent() {
		log.Error().Msg("no DataLink dongle found on the USB bus")
		os.Exit(1)
	}

	tr, err := transport.Open(log)
	if err != nil {
		log.Error().Err(err).Msg("failed to open transport")
		os.Exit(1)
	}
	defer tr.Close()

	count, err := tr.CountSessions()
	if err != nil {
		log.Error().Err(err).Msg("failed to count sessions")
		os.Exit(1)
	}
	log.Info().Int("count", count).Msg("sessions found on watch")

	if opt.ListOnly {
		for n := 0; n < count; n++ {
			size, err := tr.SessionSize(n)
			if err != nil {
				log.Warn().Int("session", n).Err(err).Msg("failed to read session size")
				continue
			}
			log.Info().Int("session", n).Int("bytes", size).Msg("session")
		}
		return
	}

	for n := 0; n < count; n++ {
		sessionLog := log.With().Int("session", n).Logger()

		size, err := tr.SessionSize(n)
		if err != nil {
			sessionLog.Warn().Err(err).Msg("failed to read session size, skipping")
			continue
		}

		raw, err := tr.ReadSession(n, size)
		if err != nil {
			sessionLog.Warn().Err(err).Msg("failed to read session body, skipping")
			continue
		}

		meta, samples, err := decoder.Decode(raw)
		if err != nil {
			sessionLog.Warn().Err(err).Msg("failed to decode session, skipping")
			continue
		}

		path, err := export.Write(cfg.Format, cfg.OutputDir, meta, samples)
		if err != nil {
			sessionLog.Warn().Err(err).Msg("failed to write session, skipping")
			continue
		}

		sessionLog.Info().
			Str("path", path).
			Int("samples", len(samples)).
			Dur("duration", meta.Duration).
			Msg("session decoded")
	}
}

func buildLogger(level string, pretty bool) zerolog.Logger {
	w := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	if pretty {
		return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
}
