package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/timmy/hakconsole/internal/client"
	"github.com/timmy/hakconsole/internal/config"
	"github.com/timmy/hakconsole/internal/jobview"
	"github.com/timmy/hakconsole/internal/logger"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx       context.Context
	API       *client.Client
	Formatter *jobview.Formatter
	Out       io.Writer
}

// staticToken is the token source of a one-shot CLI invocation.
type staticToken string

func (t staticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

func commands() map[string]command {
	return map[string]command{
		"jobs":    {name: "jobs", description: "List jobs [-search q] [-sort column] [-desc]", run: runJobs},
		"job":     {name: "job", description: "Show a job, or one of its details: job <uuid> [suffix]", run: runJob},
		"console": {name: "console", description: "Print a job's provider console: console <uuid>", run: runConsole},
		"system":  {name: "system", description: "Show backend version and installed plugins", run: runSystem},
	}
}

func main() {
	appLogger := logger.New(&logger.Config{
		Level:       "warn",
		Format:      "text",
		Output:      os.Stderr,
		ServiceName: "hakctl",
	})
	logger.SetDefaultLogger(appLogger)

	configPath := flag.String("config", "", "Path to config file")
	username := flag.String("user", "", "Login username (default: use HAKBOT_TOKEN)")
	password := flag.String("password", "", "Login password")
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(2)
	}
	cmd, ok := commands()[flag.Arg(0)]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", flag.Arg(0))
		printUsage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}
	loc, err := cfg.Display.Location()
	if err != nil {
		appLogger.WithError(err).Fatal("Invalid display timezone")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	api := client.New(&client.Config{
		BaseURL:   cfg.Backend.BaseURL,
		APIPrefix: cfg.Backend.APIPrefix,
		Timeout:   cfg.Backend.Timeout,
		UserAgent: "hakctl",
	})

	token := os.Getenv("HAKBOT_TOKEN")
	if *username != "" {
		token, err = api.Login(ctx, *username, *password)
		if err != nil {
			appLogger.WithError(err).Fatal("Login failed")
		}
	}

	cmdCtx := &commandContext{
		Ctx:       ctx,
		API:       api.WithSession(staticToken(token), nil),
		Formatter: jobview.NewFormatter(loc),
		Out:       os.Stdout,
	}
	if err := cmd.run(cmdCtx, flag.Args()[1:]); err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			fmt.Fprintln(os.Stderr, "hakctl: not authenticated; pass -user/-password or set HAKBOT_TOKEN")
			os.Exit(1)
		}
		appLogger.WithError(err).WithField("command", cmd.name).Error("Command failed")
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: hakctl [-config path] [-user name -password secret] <command> [args]")
	fmt.Fprintln(os.Stderr, "\ncommands:")
	names := make([]string, 0, len(commands()))
	for name := range commands() {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-8s %s\n", name, commands()[name].description)
	}
	fmt.Fprintln(os.Stderr, "\nflags:")
	flag.PrintDefaults()
}
