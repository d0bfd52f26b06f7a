package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/parcelhub/parcelhub/cmd/parcelhub/cli"
	"github.com/parcelhub/parcelhub/internal/app"
	"github.com/parcelhub/parcelhub/jobs"
)

const usage = `usage: parcelhubctl <command> [flags]

commands:
  jobs stats [-json]      print queue depth for the worker queues
  jobs scheduled [-n N]   list scheduled tasks on the default queue
  jobs cleanup            enqueue an idempotency key cleanup now
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 2 || args[0] != "jobs" {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := cli.NewJobsCLI(cfg.Redis().QueueOpt())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer func() { _ = c.Close() }()
	c.Retention = cfg.IdempotencyRetention

	fs := flag.NewFlagSet("jobs "+args[1], flag.ContinueOnError)
	switch args[1] {
	case "stats":
		asJSON := fs.Bool("json", false, "emit JSON")
		if err := fs.Parse(args[2:]); err != nil {
			return 2
		}
		return c.StatsCommand(ctx, cli.StatsOptions{JSONOutput: *asJSON})
	case "scheduled":
		size := fs.Int("n", 10, "page size")
		if err := fs.Parse(args[2:]); err != nil {
			return 2
		}
		tasks, err := c.ListScheduled(ctx, *size)
		if err != nil {
			fmt.Fprintf(os.Stderr, "jobs scheduled: %v\n", err)
			return 1
		}
		for _, t := range tasks {
			fmt.Printf("%s\t%s\t%s\n", t.ID, t.Type, t.NextProcessAt.UTC().Format("2006-01-02T15:04:05Z"))
		}
		return 0
	case "cleanup":
		info, err := c.Trigger(ctx, jobs.TaskIdempotencyCleanup)
		if err != nil {
			fmt.Fprintf(os.Stderr, "jobs cleanup: %v\n", err)
			return 1
		}
		fmt.Printf("enqueued %s on %s\n", info.ID, info.Queue)
		return 0
	default:
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
}
