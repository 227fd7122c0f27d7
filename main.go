package main

import (
	"context"
	"flag"

	"github.com/resolverai/burnie-mindshare-sub002/api"
	"github.com/resolverai/burnie-mindshare-sub002/assets"
	"github.com/resolverai/burnie-mindshare-sub002/common"
	"github.com/resolverai/burnie-mindshare-sub002/config"
	"github.com/resolverai/burnie-mindshare-sub002/kafka"
	"github.com/resolverai/burnie-mindshare-sub002/logging"
	"github.com/resolverai/burnie-mindshare-sub002/processor"
	"github.com/resolverai/burnie-mindshare-sub002/render"
)

func main() {
	kafkaMode := flag.Bool("kafka", false, "consume edit requests from Kafka instead of serving HTTP")
	batchMode := flag.Bool("batch", false, "render every edit request JSON under the input directory, then exit")
	inputDir := flag.String("input", config.InputDir, "input directory for batch mode")
	flag.Parse()

	cfg := config.Load()
	logging.Init(cfg.Verbose)
	logger := logging.NewLogger()

	ctx := context.Background()

	runner, err := render.NewRunner(logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("ffmpeg is required")
	}

	var (
		resolver   *assets.Resolver
		skipUpload bool
	)
	if cfg.S3Bucket != "" {
		store, err := common.NewS3(ctx, common.S3Config{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			Profile:      cfg.S3Profile,
			UsePathStyle: cfg.S3UsePathStyle,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize S3")
		}
		resolver = assets.NewResolver(store)
	} else {
		logger.Warn().Msg("S3_BUCKET not set, storage keys unavailable and outputs kept locally")
		resolver = assets.NewResolver(nil)
		skipUpload = true
	}

	status, err := processor.NewStatusStore(ctx, cfg.RedisURL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize status store")
	}
	if status == nil {
		logger.Info().Msg("REDIS_URL not set, job status tracking disabled")
	} else {
		defer status.Close()
	}

	renderer := render.NewRenderer(resolver, runner, logger)
	proc := processor.New(renderer, resolver, status, skipUpload, logger)

	switch {
	case *batchMode:
		if err := proc.ProcessFromDirectory(ctx, *inputDir); err != nil {
			logger.Fatal().Err(err).Msg("batch failed")
		}

	case *kafkaMode:
		err := kafka.RunEditConsumer(kafka.EditConsumerConfig{
			Brokers:   kafka.Brokers(),
			Topic:     kafka.Topic(),
			GroupID:   kafka.GroupID(),
			Processor: proc,
			Logger:    logger,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("kafka consumer failed")
		}

	default:
		server := api.NewServer(proc, status, logger)
		logger.Info().Str("addr", cfg.APIPort).Msg("starting API server")
		if err := server.Router().Run(cfg.APIPort); err != nil {
			logger.Fatal().Err(err).Msg("server error")
		}
	}
}
