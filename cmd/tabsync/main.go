package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"

	"tabsync/internal/config"
	"tabsync/pkg/channel"
	"tabsync/pkg/host"
	logx "tabsync/pkg/logx"
)

const usage = `usage: tabsync -config <file> <command> [args]

commands:
  watch         print each cross-context update as a JSON line
  set <value>   publish a value (parsed as JSON, raw string otherwise)
  get           print the value currently held by the store
`

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./tabsync.yaml", "path to config (yaml or json)")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}

	log := logx.NewConsole(cfg.Logging.Level)

	store, err := host.OpenStore(host.StoreConfig{Driver: cfg.Store.Driver, Path: cfg.Store.Path}, log)
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}
	if store != nil {
		defer store.Close()
	}

	opts := []channel.Option{
		channel.WithNamespace(cfg.Namespace),
		channel.WithDebug(cfg.Logging.Debug),
		channel.WithLogger(log),
	}
	if store != nil {
		opts = append(opts, channel.WithStore(store))
	}
	if cfg.Encryption.Enabled {
		opts = append(opts, channel.WithEncryption(cfg.Encryption.Secret))
	}
	if d, _ := cfg.PollDuration(); d > 0 {
		opts = append(opts, channel.WithPollInterval(d))
	}

	switch flag.Arg(0) {
	case "watch":
		runWatch(cfg, opts)
	case "set":
		if flag.NArg() < 2 {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		runSet(cfg, opts, flag.Arg(1))
	case "get":
		runGet(cfg, opts)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func runWatch(cfg *config.Config, opts []channel.Option) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	b := channel.Bind(cfg.Key, nil, opts...)
	defer b.Close()

	startWatch(b, printValue)

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)

	<-ctx.Done()
}

// startWatch registers the hook before the initial load, so a value
// written in between is printed by the hook instead of being missed.
func startWatch(b *channel.Binding, out func(any)) {
	b.OnChange(out)
	if v, ok := b.Channel().Load(); ok {
		out(v)
	}
}

func runSet(cfg *config.Config, opts []channel.Option, arg string) {
	var v any
	if err := json.Unmarshal([]byte(arg), &v); err != nil {
		// Not JSON; treat as a plain string.
		v = arg
	}
	c := channel.New(cfg.Key, opts...)
	defer c.Destroy()
	c.Set(v)
}

func runGet(cfg *config.Config, opts []channel.Option) {
	c := channel.New(cfg.Key, opts...)
	defer c.Destroy()
	v, ok := c.Load()
	if !ok {
		os.Exit(1)
	}
	printValue(v)
}

func printValue(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		fmt.Println(v)
		return
	}
	fmt.Println(string(b))
}
