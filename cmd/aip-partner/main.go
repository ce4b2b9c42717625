package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/mashiike/aipkit"
	"github.com/mashiike/aipkit/awsadp"
	"github.com/mashiike/aipkit/transport"
)

func main() {
	var (
		addr      = flag.String("addr", ":8080", "listen address")
		partnerID = flag.String("id", "aip-partner", "partner id stamped on replies")
		upstream  = flag.String("upstream", os.Getenv("AIP_UPSTREAM_URL"), "relay every message to this partner endpoint instead of answering locally")
		apiKey    = flag.String("api-key", os.Getenv("AIP_API_KEY"), "require this X-API-Key header")
		jwtSecret = flag.String("jwt-secret", os.Getenv("AIP_JWT_SECRET"), "require HS256 bearer tokens signed with this secret")
		prefix    = flag.String("prefix", "aip-partner", "S3 key prefix")
		streaming = flag.Bool("lambda-streaming", false, "use Lambda response streaming")
		debug     = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, options{
		addr:      *addr,
		partnerID: *partnerID,
		upstream:  *upstream,
		apiKey:    *apiKey,
		jwtSecret: *jwtSecret,
		prefix:    *prefix,
		streaming: *streaming,
	}); err != nil {
		slog.Error("partner stopped", "error", err)
		os.Exit(1)
	}
}

type options struct {
	addr      string
	partnerID string
	upstream  string
	apiKey    string
	jwtSecret string
	prefix    string
	streaming bool
}

func run(ctx context.Context, opts options) error {
	server := &aipkit.Server{
		Addr:            opts.addr,
		LambdaStreaming: opts.streaming,
	}
	if err := configureAWS(ctx, server, opts.prefix); err != nil {
		return err
	}

	var authenticators []transport.Authenticator
	if opts.apiKey != "" {
		authenticators = append(authenticators, aipkit.StaticAPIKeyAuthenticator{APIKey: opts.apiKey})
	}
	if opts.jwtSecret != "" {
		authenticators = append(authenticators, aipkit.NewJWTAuthenticator([]byte(opts.jwtSecret)))
	}
	if len(authenticators) > 0 {
		server.Authenticator = transport.FirstOf(authenticators...)
	}

	// handlers get the store once the server has created it
	var bindStore func(aipkit.TaskStore)
	if opts.upstream != "" {
		relay := aipkit.NewRemotePartner(nil, opts.upstream, transport.WithLeaderID(opts.partnerID))
		server.Handlers = relay.Handlers()
		bindStore = func(store aipkit.TaskStore) { relay.Store = store }
		slog.Info("relaying to upstream partner", "upstream", opts.upstream)
	} else {
		single := aipkit.NewSingleTurn(nil, opts.partnerID, aipkit.ProcessorFunc(echo))
		server.Handlers = single.Handlers()
		bindStore = func(store aipkit.TaskStore) { single.Store = store }
	}
	if _, err := server.Service(); err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}
	bindStore(server.Store)

	slog.Info("starting partner", "addr", server.Addr, "partnerID", opts.partnerID)
	return server.RunWithContext(ctx)
}

// configureAWS switches the event log, subscriptions and delivery queue to AWS
// when AIP_EVENT_BUCKET or AIP_DELIVERY_QUEUE_URL is set.
func configureAWS(ctx context.Context, server *aipkit.Server, prefix string) error {
	bucket := os.Getenv(aipkit.EnvEventBucket)
	queueURL := os.Getenv(aipkit.EnvDeliveryQueueURL)
	if bucket == "" && queueURL == "" {
		return nil
	}
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	if bucket != "" {
		client := s3.NewFromConfig(awsCfg)
		server.Events = awsadp.NewS3EventLog(awsadp.S3EventLogConfig{
			Client: client,
			Bucket: bucket,
			Prefix: prefix,
		})
		server.NotificationStore = awsadp.NewS3NotificationStore(awsadp.S3NotificationStoreConfig{
			Client: client,
			Bucket: bucket,
			Prefix: prefix,
		})
		slog.Info("using S3 event log", "bucket", bucket, "prefix", prefix)
	}
	if queueURL != "" {
		queue, err := awsadp.NewSQSDeliveryQueue(awsadp.SQSDeliveryQueueConfig{
			Client:     sqs.NewFromConfig(awsCfg),
			QueueURL:   queueURL,
			RetryDelay: 10 * time.Second,
		})
		if err != nil {
			return fmt.Errorf("failed to create delivery queue: %w", err)
		}
		server.DeliveryQueue = queue
		slog.Info("using SQS delivery queue", "queueURL", queueURL)
	}
	return nil
}

func echo(ctx context.Context, input string) (string, error) {
	return "echo: " + strings.TrimSpace(input), nil
}
