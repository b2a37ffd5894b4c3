package main

import (
	"context"
	"crypto/ecdsa"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/alejandrodnm/outcomex/config"
	"github.com/alejandrodnm/outcomex/internal/adapters/notify"
	"github.com/alejandrodnm/outcomex/internal/adapters/storage"
	"github.com/alejandrodnm/outcomex/internal/application/engine"
	"github.com/alejandrodnm/outcomex/internal/auth"
	"github.com/alejandrodnm/outcomex/internal/domain"
	"github.com/alejandrodnm/outcomex/internal/ports"
	"github.com/ethereum/go-ethereum/crypto"
)

// app agrupa las dependencias compartidas por todos los comandos.
type app struct {
	cfg     *config.Config
	store   *storage.SQLiteStorage
	eng     *engine.Engine
	console *notify.Console
	caller  domain.Address
	key     *ecdsa.PrivateKey
}

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print events as a table (default: compact 1-line)")
	as := flag.String("as", "", "caller address for unsigned calls (default: configured authority)")
	keyHex := flag.String("key", "", "hex private key; signs debits and sets the caller (env MARKET_KEY)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}
	name, args := flag.Arg(0), flag.Args()[1:]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	a := &app{cfg: cfg, store: store, console: notify.NewConsole(*table)}

	// En modo json los eventos van al log estructurado; en text a la consola.
	// El runner de revisión es un proceso largo y usa ambos.
	var sink ports.EventSink = a.console
	switch {
	case cfg.Log.Format == "json":
		sink = notify.NewLogger(slog.Default())
	case name == "review-run":
		sink = notify.Multi{a.console, notify.NewLogger(slog.Default())}
	}
	a.eng = engine.New(store, sink)

	// MARKET_KEY se lee después de config.Load para que también valga desde .env.
	if *keyHex == "" {
		*keyHex = os.Getenv("MARKET_KEY")
	}
	if err := a.resolveCaller(*as, *keyHex); err != nil {
		slog.Error("invalid identity", "err", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Debug("marketctl", "command", name, "caller", a.caller.Hex(), "dsn", cfg.Storage.DSN)

	if err := cmd.run(ctx, a, args); err != nil {
		slog.Error(name+" failed", "code", domain.Code(err), "err", err)
		os.Exit(1)
	}
}

// resolveCaller fija la identidad: la clave privada manda, luego -as y por
// último la authority configurada.
func (a *app) resolveCaller(as, keyHex string) error {
	if keyHex != "" {
		key, err := auth.LoadKey(keyHex)
		if err != nil {
			return err
		}
		a.key = key
		a.caller = crypto.PubkeyToAddress(key.PublicKey)
		return nil
	}
	if as == "" {
		as = a.cfg.Engine.Authority
	}
	if as == "" {
		return nil
	}
	addr, err := parseAddr(as)
	if err != nil {
		return err
	}
	a.caller = addr
	return nil
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: marketctl [flags] <command> [args]\n\nflags:\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\ncommands:\n")
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(os.Stderr, "  %-15s %s\n", n, commands[n].usage)
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
