package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/menta2k/devtools/internal/logging"
	"github.com/menta2k/devtools/pkg/listener"
)

type options struct {
	address    string
	id         string
	token      string
	authHeader string
	insecure   bool
	pause      time.Duration
	timeout    time.Duration
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	o := &options{}
	fs := flag.NewFlagSet("wslisten", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&o.address, "address", "", "websocket URI (ws:// or wss://); {id} and {token} are substituted")
	fs.StringVar(&o.id, "id", "", "value for the {id} placeholder")
	fs.StringVar(&o.token, "token", "", "value for the {token} placeholder")
	fs.StringVar(&o.authHeader, "auth-header", "", "Authorization header sent with the handshake (bare tokens get a Bearer prefix)")
	fs.BoolVar(&o.insecure, "insecure", false, "skip TLS certificate and hostname verification (dev/test endpoints only)")
	fs.DurationVar(&o.pause, "pause", listener.DefaultPause, "delay after each received frame")
	fs.DurationVar(&o.timeout, "handshake-timeout", 10*time.Second, "handshake timeout")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.address == "" {
		fmt.Fprintf(stderr, "usage: %s --address ws://host/path [--id ID] [--token TOKEN] [--auth-header VALUE] [--insecure]\n", filepath.Base(os.Args[0]))
		return nil, listener.ErrAddressRequired
	}
	return o, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, logger zerolog.Logger) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	address, err := listener.ResolveAddress(o.address, o.id, o.token)
	if err != nil {
		fmt.Fprintf(stderr, "wslisten: %v\n", err)
		return 2
	}

	cfg := listener.DefaultConfig(address)
	cfg.Header = listener.AuthHeader(o.authHeader)
	cfg.InsecureSkipVerify = o.insecure
	cfg.HandshakeTimeout = o.timeout
	if o.pause <= 0 {
		cfg.Pause = -1
	} else {
		cfg.Pause = o.pause
	}
	if o.insecure {
		logger.Warn().Msg("TLS verification disabled")
	}

	l, err := listener.Dial(ctx, cfg, listener.WithOutput(stdout), listener.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(stderr, "wslisten: %v\n", err)
		return 1
	}

	// Receive errors are the normal way the loop ends
	res := l.Run(ctx)
	logger.Debug().Stringer("outcome", res.Kind).Msg("done")
	return 0
}

func main() {
	logging.Init("wslisten", logging.ProfileRuntime)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, log.Logger)
	stop()
	os.Exit(code)
}
