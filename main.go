package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fzft/go-mini-redis/cmd"
	"github.com/fzft/go-mini-redis/config"
	"github.com/fzft/go-mini-redis/log"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "miniredis",
		Usage:   "in-memory key-value server speaking RESP",
		Version: versionString(),
		Flags:   serverFlags(),
		Action:  serverAction,
		Commands: []*cli.Command{
			{
				Name:   "server",
				Usage:  "run the server (default)",
				Flags:  serverFlags(),
				Action: serverAction,
			},
			{
				Name:      "cli",
				Usage:     "send commands to a running server",
				ArgsUsage: "[command [arg ...]]",
				Flags:     cliFlags(),
				Action:    cliAction,
			},
		},
	}
}

func serverFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config file"},
		&cli.StringFlag{Name: "bind", Usage: "listen host (default all interfaces)"},
		&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "listen port (default 6379)"},
		&cli.IntFlag{Name: "workers", Usage: "worker pool size (default 16)"},
		&cli.DurationFlag{Name: "timeout", Usage: "per connection read timeout (default 30s)"},
		&cli.IntFlag{Name: "shards", Usage: "store partitions, a power of two (default 1)"},
		&cli.IntFlag{Name: "rate-limit", Usage: "commands per second per connection, 0 disables"},
		&cli.StringFlag{Name: "metrics-addr", Usage: "serve Prometheus metrics on this address"},
		&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
		&cli.StringFlag{Name: "log-encoding", Usage: "console or json"},
	}
}

// flagKeys maps command line flags to config keys.
var flagKeys = map[string]string{
	"bind":         "bind",
	"port":         "port",
	"workers":      "workers",
	"timeout":      "read_timeout",
	"shards":       "shards",
	"rate-limit":   "rate_limit",
	"metrics-addr": "metrics_addr",
	"log-level":    "log.level",
	"log-encoding": "log.encoding",
}

// loadConfig layers explicitly set flags over defaults, the file and the
// environment.
func loadConfig(c *cli.Context) (*config.Config, error) {
	loader := config.NewLoader(config.WithConfigFile(c.String("config")))

	flags := make(map[string]any)
	for flag, key := range flagKeys {
		if c.IsSet(flag) {
			flags[key] = c.Value(flag)
		}
	}
	loader.LoadMap(flags)

	cfg := &config.Config{}
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func serverAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := log.InitLogger(cfg.Log.Level, cfg.Log.Encoding); err != nil {
		return err
	}
	defer log.Sync()
	return runServer(cfg)
}

func cliFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "host", Aliases: []string{"H"}, Value: "127.0.0.1", Usage: "server hostname"},
		&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 6379, Usage: "server port"},
		&cli.IntFlag{Name: "repeat", Aliases: []string{"r"}, Value: 1, Usage: "execute the command N times"},
		&cli.DurationFlag{Name: "interval", Aliases: []string{"i"}, Usage: "wait between repeated commands"},
		&cli.DurationFlag{Name: "timeout", Value: 5 * time.Second, Usage: "connect and I/O timeout"},
		&cli.BoolFlag{Name: "raw", Usage: "use raw formatting for replies (default when stdout is not a tty)"},
		&cli.BoolFlag{Name: "no-raw", Usage: "force formatted output even when stdout is not a tty"},
	}
}

func cliAction(c *cli.Context) error {
	opts := []cmd.Option{
		cmd.WithRepeat(c.Int("repeat"), c.Duration("interval")),
		cmd.WithTimeout(c.Duration("timeout")),
	}
	if c.Bool("raw") {
		opts = append(opts, cmd.WithRaw(true))
	} else if c.Bool("no-raw") {
		opts = append(opts, cmd.WithRaw(false))
	}
	return cmd.NewRedisCli(c.String("host"), c.Int("port"), opts...).Run(c.Args().Slice())
}
