package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/s3types"
)

const envPrefix = "S3ENCRYPT"

// cliConfig is the resolved configuration of one invocation.
type cliConfig struct {
	Bucket     string
	Key        string
	StartAfter string
	MaxObjects int
	PageSize   int32
	DryRun     bool

	AWSKeyID        string
	AWSKeySecret    string
	AWSSessionToken string
	// CredentialsSecret names a Secrets Manager secret holding the keys
	CredentialsSecret string
	Region            string
	Endpoint          string
	PathStyle         bool
	MaxRetries        int
	Timeout           time.Duration

	SSE s3types.SSEConfig

	LogLevel    slog.Level
	LogFormat   string
	MetricsFile string
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

func loadConfigFile(v *viper.Viper) (string, error) {
	cfgPath := strings.TrimSpace(v.GetString("config"))
	if cfgPath == "" {
		return "", nil
	}

	expanded, err := expandPath(cfgPath)
	if err != nil {
		return "", fmt.Errorf("expand config path %q: %w", cfgPath, err)
	}
	info, err := os.Stat(expanded)
	if err != nil {
		return "", fmt.Errorf("config file %q: %w", expanded, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("config file %q is a directory", expanded)
	}

	v.SetConfigFile(expanded)
	if err := v.ReadInConfig(); err != nil {
		return "", fmt.Errorf("read config file %q: %w", expanded, err)
	}
	return expanded, nil
}

func expandPath(p string) (string, error) {
	if strings.HasPrefix(p, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		if len(p) == 1 {
			p = home
		} else if p[1] == '/' || p[1] == '\\' {
			p = filepath.Join(home, p[2:])
		}
	}
	return filepath.Abs(p)
}

func bindConfig(v *viper.Viper) (*cliConfig, error) {
	cfg := &cliConfig{
		Bucket:            strings.TrimSpace(v.GetString("bucket")),
		Key:               v.GetString("key"),
		StartAfter:        v.GetString("start-after"),
		MaxObjects:        v.GetInt("max"),
		PageSize:          v.GetInt32("page-size"),
		DryRun:            v.GetBool("dry-run"),
		AWSKeyID:          v.GetString("aws-key-id"),
		AWSKeySecret:      v.GetString("aws-key-secret"),
		AWSSessionToken:   v.GetString("aws-session-token"),
		CredentialsSecret: v.GetString("aws-credentials-secret"),
		Region:            v.GetString("region"),
		Endpoint:          v.GetString("endpoint"),
		PathStyle:         v.GetBool("path-style"),
		MaxRetries:        v.GetInt("max-retries"),
		Timeout:           v.GetDuration("timeout"),
		LogFormat:         strings.ToLower(v.GetString("log-format")),
		MetricsFile:       v.GetString("metrics-file"),
		SSE: s3types.SSEConfig{
			Type:     s3types.SSEType(v.GetString("sse")),
			KMSKeyID: v.GetString("kms-key-id"),
		},
	}

	if cfg.Bucket == "" {
		return nil, fmt.Errorf("--bucket is required (or set %s_BUCKET)", envPrefix)
	}
	if (cfg.AWSKeyID == "") != (cfg.AWSKeySecret == "") {
		return nil, fmt.Errorf("--aws-key-id and --aws-key-secret must be set together")
	}
	if cfg.AWSSessionToken != "" && cfg.AWSKeyID == "" {
		return nil, fmt.Errorf("--aws-session-token requires --aws-key-id and --aws-key-secret")
	}
	if cfg.CredentialsSecret != "" && cfg.AWSKeyID != "" {
		return nil, fmt.Errorf("--aws-credentials-secret cannot be combined with --aws-key-id")
	}
	if cfg.Key != "" && (cfg.StartAfter != "" || cfg.MaxObjects != 0) {
		return nil, fmt.Errorf("--key cannot be combined with --start-after or --max")
	}
	if err := validation.ValidateSSE(cfg.SSE); err != nil {
		return nil, err
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString("log-level"))); err != nil {
		return nil, fmt.Errorf("parse log-level: %w", err)
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("unsupported log-format %q (want text or json)", cfg.LogFormat)
	}
	return cfg, nil
}
