package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt"
	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/internal/credsecret"
	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/internal/metrics"
	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/s3types"
)

// storageFactory opens the storage a run operates on.
type storageFactory func(ctx context.Context, cfg *cliConfig, logger *slog.Logger) (s3encrypt.Storage, error)

func submain(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	return execute(withSignalCancel(ctx), newRootCommand(stdout, stderr, newS3Storage), args, stderr)
}

func execute(ctx context.Context, cmd *cobra.Command, args []string, stderr io.Writer) int {
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintf(stderr, "Error: %s\n", err)
		}
		return 1
	}
	return 0
}

func newS3Storage(ctx context.Context, cfg *cliConfig, logger *slog.Logger) (s3encrypt.Storage, error) {
	opts := []s3types.Option{
		s3encrypt.WithRegion(cfg.Region),
		s3encrypt.WithMaxRetries(cfg.MaxRetries),
		s3encrypt.WithForcePathStyle(cfg.PathStyle),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, s3encrypt.WithEndpoint(cfg.Endpoint))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, s3encrypt.WithTimeout(cfg.Timeout))
	}
	switch {
	case cfg.AWSKeyID != "":
		opts = append(opts, s3encrypt.WithCredentials(cfg.AWSKeyID, cfg.AWSKeySecret, cfg.AWSSessionToken))
	case cfg.CredentialsSecret != "":
		provider, err := credsecret.New(ctx, cfg.Region, cfg.CredentialsSecret, logger)
		if err != nil {
			return nil, err
		}
		opts = append(opts, s3encrypt.WithCredentialsProvider(provider))
	}
	return s3encrypt.New(ctx, opts...)
}

func newRootCommand(stdout, stderr io.Writer, openStorage storageFactory) *cobra.Command {
	v := newViper()

	cmd := &cobra.Command{
		Use:           "s3encrypt",
		Short:         "s3encrypt rewrites unencrypted S3 objects in place under server-side encryption",
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		Example: `
  # Report what would change without rewriting anything
  s3encrypt --bucket my-bucket --dry-run

  # Remediate at most 1000 objects, resuming after a previous run
  s3encrypt -b my-bucket -m 1000 -s logs/2024/06/30/part-0042.gz

  # Re-encrypt a single object with a customer managed KMS key
  s3encrypt -b my-bucket -k reports/q3.pdf --sse aws:kms --kms-key-id alias/reports

  # Environment works for every flag
  S3ENCRYPT_BUCKET=my-bucket S3ENCRYPT_DRY_RUN=true s3encrypt
`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true

			configFile, err := loadConfigFile(v)
			if err != nil {
				return err
			}
			cfg, err := bindConfig(v)
			if err != nil {
				return err
			}

			logger := newLogger(stderr, cfg)
			if configFile != "" {
				logger.Debug("loaded config file", "path", configFile)
			}
			return run(cmd.Context(), cfg, stdout, logger, openStorage)
		},
	}

	persistent := cmd.PersistentFlags()
	persistent.StringP("config", "c", "", "path to a YAML, JSON or TOML config file")

	flags := cmd.Flags()
	flags.StringP("bucket", "b", "", "bucket to audit (required)")
	flags.StringP("key", "k", "", "remediate a single object instead of listing the bucket")
	flags.IntP("max", "m", 0, "stop after examining this many objects (0 means no limit)")
	flags.BoolP("dry-run", "d", false, "classify objects without rewriting them")
	flags.StringP("start-after", "s", "", "resume listing after this key")
	flags.Int32("page-size", s3encrypt.DefaultPageSize, "number of keys requested per listing page")
	flags.String("aws-key-id", "", "AWS access key id (default credential chain when empty)")
	flags.String("aws-key-secret", "", "AWS secret access key")
	flags.String("aws-session-token", "", "AWS session token for temporary credentials")
	flags.String("aws-credentials-secret", "", "Secrets Manager secret id holding the access key pair")
	flags.String("region", "", "AWS region (defaults to the environment, then "+s3encrypt.DefaultRegion+")")
	flags.String("endpoint", "", "custom S3 endpoint URL")
	flags.Bool("path-style", false, "use path-style bucket addressing")
	flags.Int("max-retries", 3, "maximum attempts per S3 request")
	flags.Duration("timeout", 0, "HTTP timeout per S3 request (0 means none)")
	flags.String("sse", string(s3types.SSES3), "target server-side encryption (AES256, aws:kms or aws:kms:dsse)")
	flags.String("kms-key-id", "", "KMS key id or alias for aws:kms encryption")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text or json)")
	flags.String("metrics-file", "", "write Prometheus metrics to this file when the run ends")

	mustBind(v, persistent)
	mustBind(v, flags)

	return cmd
}

func mustBind(v *viper.Viper, flags *pflag.FlagSet) {
	if err := v.BindPFlags(flags); err != nil {
		panic(err)
	}
}

func newLogger(w io.Writer, cfg *cliConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func run(ctx context.Context, cfg *cliConfig, stdout io.Writer, logger *slog.Logger, openStorage storageFactory) error {
	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	lines := s3encrypt.NewLineReporter(stdout, cfg.SSE.Type)
	promReporter := metrics.NewReporter()

	enc, err := s3encrypt.NewEncrypter(store,
		s3encrypt.WithLogger(logger),
		s3encrypt.WithReporter(s3encrypt.MultiReporter{lines, promReporter}),
		s3encrypt.WithSSE(cfg.SSE),
	)
	if err != nil {
		return err
	}

	var (
		result *s3encrypt.BucketResult
		runErr error
	)
	if cfg.Key != "" {
		result, runErr = runObject(ctx, enc, cfg)
	} else {
		result, runErr = enc.RemediateBucket(ctx, s3encrypt.BucketConfig{
			Bucket:     cfg.Bucket,
			PageSize:   cfg.PageSize,
			StartAfter: cfg.StartAfter,
			MaxObjects: cfg.MaxObjects,
			DryRun:     cfg.DryRun,
		})
	}

	if result != nil {
		printSummary(stdout, result, cfg.DryRun)
	}
	if cfg.MetricsFile != "" {
		if err := promReporter.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Error("failed to write metrics file", "path", cfg.MetricsFile, "error", err)
			runErr = errors.Join(runErr, fmt.Errorf("write metrics file: %w", err))
		}
	}
	if err := lines.Err(); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("write report: %w", err))
	}
	return runErr
}

// runObject handles single-key mode. A failed object fails the invocation.
func runObject(ctx context.Context, enc *s3encrypt.Encrypter, cfg *cliConfig) (*s3encrypt.BucketResult, error) {
	res := enc.RemediateObject(ctx, cfg.Bucket, cfg.Key, cfg.DryRun)

	result := &s3encrypt.BucketResult{
		Examined: 1,
		LastKey:  res.Key,
		Duration: res.Duration,
	}
	switch res.Outcome {
	case s3types.OutcomeSkipped:
		result.AlreadyEncrypted = 1
	case s3types.OutcomeRemediated:
		result.Remediated = 1
		result.BytesRemediated = res.Size
	case s3types.OutcomeFailed:
		result.Failed = 1
		return result, res.Err
	}
	return result, nil
}

func printSummary(w io.Writer, result *s3encrypt.BucketResult, dryRun bool) {
	if result.LastKey == "" {
		fmt.Fprintln(w, "Processed 0 objects: no objects examined, nothing to resume from.")
	} else {
		fmt.Fprintf(w, "Processed %d objects (%d unencrypted objects were found), ending with %s.\n",
			result.Examined, result.Remediated, result.LastKey)
	}

	verb := "Rewrote"
	if dryRun {
		verb = "Would rewrite"
	}
	fmt.Fprintf(w, "%s %s across %d objects; %d already encrypted, %d failed, took %s.\n",
		verb, humanize.Bytes(uint64(result.BytesRemediated)), result.Remediated,
		result.AlreadyEncrypted, result.Failed, result.Duration.Round(time.Millisecond))
}

func withSignalCancel(ctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(signals)
	}()
	return ctx
}
