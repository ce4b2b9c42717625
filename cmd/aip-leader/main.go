package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/mashiike/aipkit/aip"
	"github.com/mashiike/aipkit/transport"
)

const usage = `usage: aip-leader [flags] <command> [args]

commands:
  start <text>                        start a task
  continue <task-id> <text>           send more input
  complete <task-id>                  accept the products
  cancel <task-id>                    cancel the task
  get <task-id>                       show the task
  stream <text>                       start a task and follow its events
  restream <task-id> [last-event-seq] replay events after last-event-seq
  notify <task-id> <url> [token]      register and start a webhook for the task
`

func main() {
	var (
		endpoint = flag.String("endpoint", envOr("AIP_PARTNER_URL", "http://localhost:8080/"), "partner rpc endpoint")
		leaderID = flag.String("id", "aip-leader", "leader id")
		session  = flag.String("session", "", "session id (defaults to the task id)")
		apiKey   = flag.String("api-key", os.Getenv("AIP_API_KEY"), "X-API-Key header value")
		token    = flag.String("token", os.Getenv("AIP_BEARER_TOKEN"), "bearer token")
		debug    = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	level := slog.LevelWarn
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	opts := []transport.ClientOption{
		transport.WithLeaderID(*leaderID),
		transport.WithClientLogger(slog.Default()),
		transport.WithUserAgent("aip-leader/1.0"),
	}
	if *apiKey != "" {
		opts = append(opts, transport.WithHeader("X-API-Key", *apiKey))
	}
	if *token != "" {
		opts = append(opts, transport.WithBearerToken(*token))
	}
	client := transport.NewClient(*endpoint, opts...)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	l := &leader{client: client, session: *session, out: os.Stdout}
	if err := l.run(ctx, flag.Args()); err != nil {
		var rpcErr *aip.JSONRPCError
		if errors.As(err, &rpcErr) {
			fmt.Fprintf(os.Stderr, "partner error %d: %s\n", rpcErr.Code, rpcErr.Message)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

type leader struct {
	client  *transport.Client
	session string
	out     io.Writer
}

func (l *leader) sessionFor(taskID string) string {
	if l.session != "" {
		return l.session
	}
	return taskID
}

func (l *leader) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New(strings.TrimSpace(usage))
	}
	cmd, args := args[0], args[1:]
	need := func(n int) error {
		if len(args) < n {
			return fmt.Errorf("%s: expected %d argument(s)\n%s", cmd, n, usage)
		}
		return nil
	}

	switch cmd {
	case "start":
		if err := need(1); err != nil {
			return err
		}
		taskID := transport.NewTaskID()
		msg := l.client.NewMessage(taskID, l.sessionFor(taskID), aip.CommandStart, strings.Join(args, " "))
		result, err := l.client.SendMessage(ctx, msg)
		return l.print(result, err)
	case "continue":
		if err := need(2); err != nil {
			return err
		}
		task, err := l.client.ContinueTask(ctx, args[0], l.sessionFor(args[0]), strings.Join(args[1:], " "))
		return l.print(task, err)
	case "complete":
		if err := need(1); err != nil {
			return err
		}
		task, err := l.client.CompleteTask(ctx, args[0], l.sessionFor(args[0]))
		return l.print(task, err)
	case "cancel":
		if err := need(1); err != nil {
			return err
		}
		task, err := l.client.CancelTask(ctx, args[0], l.sessionFor(args[0]))
		return l.print(task, err)
	case "get":
		if err := need(1); err != nil {
			return err
		}
		task, err := l.client.GetTask(ctx, args[0], l.sessionFor(args[0]))
		return l.print(task, err)
	case "stream":
		if err := need(1); err != nil {
			return err
		}
		taskID := transport.NewTaskID()
		msg := l.client.NewMessage(taskID, l.sessionFor(taskID), aip.CommandStart, strings.Join(args, " "))
		stream, err := l.client.Stream(ctx, msg)
		if err != nil {
			return err
		}
		return l.follow(stream)
	case "restream":
		if err := need(1); err != nil {
			return err
		}
		var last int64
		if len(args) > 1 {
			v, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid last-event-seq %q: %w", args[1], err)
			}
			last = v
		}
		stream, err := l.client.ReStream(ctx, args[0], l.sessionFor(args[0]), last)
		if err != nil {
			return err
		}
		return l.follow(stream)
	case "notify":
		if err := need(2); err != nil {
			return err
		}
		cfg := aip.NotificationConfig{TaskID: args[0], URL: args[1]}
		if len(args) > 2 {
			cfg.Token = args[2]
		}
		registered, err := l.client.SetNotification(ctx, cfg)
		if err != nil {
			return err
		}
		task, err := l.client.StartNotification(ctx, args[0], l.sessionFor(args[0]), registered.ID)
		return l.print(task, err)
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
}

func (l *leader) follow(stream *transport.StreamReader) error {
	defer stream.Close()
	for {
		ev, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := l.print(ev, nil); err != nil {
			return err
		}
	}
}

func (l *leader) print(v any, err error) error {
	if err != nil {
		return err
	}
	enc := json.NewEncoder(l.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
