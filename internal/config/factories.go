package config

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"

	"portal/internal/signal"
	"portal/internal/storage"
	"portal/internal/storage/local"
	"portal/internal/storage/s3"
)

// decodeOptions decodes a backend option map. Values from the environment
// arrive as strings, so weak typing is on.
func decodeOptions(options map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(options)
}

// CreateMirror builds the storage mirror selected by cfg.Type.
//
// Supported types:
//   - "local": afero OS filesystem rooted at local.root
//   - "memory": ephemeral afero in-memory filesystem
//   - "s3": bucket-backed mirror (AWS S3 or compatible)
func CreateMirror(ctx context.Context, cfg *StorageConfig, logger *slog.Logger) (storage.Mirror, error) {
	switch cfg.Type {
	case "local":
		return createLocalMirror(cfg.Local, logger)
	case "memory":
		logger.Warn("using in-memory storage, documents are lost on restart")
		return local.NewMemory(logger), nil
	case "s3":
		return createS3Mirror(ctx, cfg.S3, logger)
	default:
		return nil, fmt.Errorf("unknown storage type: %q (supported: local, memory, s3)", cfg.Type)
	}
}

func createLocalMirror(options map[string]any, logger *slog.Logger) (storage.Mirror, error) {
	type LocalMirrorConfig struct {
		Root string `mapstructure:"root"`
	}

	var mirrorCfg LocalMirrorConfig
	if err := decodeOptions(options, &mirrorCfg); err != nil {
		return nil, fmt.Errorf("failed to decode local storage config: %w", err)
	}

	mirror, err := local.NewOS(mirrorCfg.Root, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("local storage initialized", "root", mirrorCfg.Root)
	return mirror, nil
}

// S3MirrorConfig is the decoded form of the storage.s3 section
type S3MirrorConfig struct {
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	KeyPrefix       string `mapstructure:"key_prefix"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	MaxRetries      int    `mapstructure:"max_retries"`
	CopyConcurrency int    `mapstructure:"copy_concurrency"`
}

func createS3Mirror(ctx context.Context, options map[string]any, logger *slog.Logger) (storage.Mirror, error) {
	var mirrorCfg S3MirrorConfig
	if err := decodeOptions(options, &mirrorCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 storage config: %w", err)
	}
	if mirrorCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 storage: bucket is required")
	}
	if mirrorCfg.Region == "" {
		return nil, fmt.Errorf("S3 storage: region is required")
	}

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, s3LoadOptions(&mirrorCfg)...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		// MinIO and Localstack need a fixed endpoint with path-style addressing
		if mirrorCfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(mirrorCfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	mirror, err := s3.New(s3.Config{
		Client:          client,
		Bucket:          mirrorCfg.Bucket,
		KeyPrefix:       mirrorCfg.KeyPrefix,
		CopyConcurrency: mirrorCfg.CopyConcurrency,
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 storage: %w", err)
	}

	logger.Info("S3 storage initialized",
		"bucket", mirrorCfg.Bucket,
		"region", mirrorCfg.Region,
		"prefix", mirrorCfg.KeyPrefix,
	)
	return mirror, nil
}

// s3LoadOptions translates the decoded section into AWS config options
func s3LoadOptions(cfg *S3MirrorConfig) []func(*awsConfig.LoadOptions) error {
	options := []func(*awsConfig.LoadOptions) error{
		awsConfig.WithRegion(cfg.Region),
	}

	// Static credentials when given, otherwise the default credential chain
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		options = append(options, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	options = append(options, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))
	return options
}

// CreateSignal builds the change counter backend selected by cfg.Type.
func CreateSignal(cfg *SignalConfig, logger *slog.Logger) (signal.Signal, error) {
	switch cfg.Type {
	case "badger":
		type BadgerSignalConfig struct {
			Path string `mapstructure:"path"`
		}
		var signalCfg BadgerSignalConfig
		if err := decodeOptions(cfg.Badger, &signalCfg); err != nil {
			return nil, fmt.Errorf("failed to decode badger signal config: %w", err)
		}
		if signalCfg.Path == "" {
			logger.Warn("badger signal path not set, counters are kept in memory")
		}
		return signal.NewBadger(signal.BadgerConfig{Path: signalCfg.Path, Logger: logger})
	case "memory":
		return signal.NewMemory(), nil
	case "noop":
		return signal.Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown signal type: %q (supported: badger, memory, noop)", cfg.Type)
	}
}
