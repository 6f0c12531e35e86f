package main

import (
	"context"
	"flag"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"sitenav/internal/api"
	"sitenav/internal/backends"
	"sitenav/internal/favorites"
	"sitenav/internal/license"
	"sitenav/internal/ports"
	"sitenav/internal/pub"
	"sitenav/internal/session"
	"sitenav/internal/settings"
	"sitenav/internal/sites"
	"sitenav/internal/types"
)

func main() {
	configPath := flag.String("config", "", "Path to optional YAML config file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Load environment variables
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Info("The .env file not found.")
	}
	if *debug {
		log.SetLevel(log.DebugLevel)
	}

	cfg, err := types.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	baseURL := os.Getenv("SITE_BASE_URL")
	if baseURL == "" {
		log.Fatal("SITE_BASE_URL is required")
	}
	sess := session.NewStatic(baseURL, os.Getenv("API_BEARER_TOKEN"))

	store, err := backends.CacheBackendFromEnv()
	if err != nil {
		log.Fatalf("Failed to initialize cache store: %v", err)
	}

	var publisher ports.Publisher
	topic := os.Getenv("EVENTS_SNS_ARN")
	if topic != "" {
		publisher, err = snsPublisherFromEnv()
		if err != nil {
			log.Fatalf("Failed to initialize SNS publisher: %v", err)
		}
	}

	fetcher := sites.NewFetcher(sess, cfg.Search, nil, publisher, topic)
	validator := license.NewValidator(store, sess, cfg.License, publisher, topic)
	favService := favorites.NewService(store)
	setService := settings.NewService(store)

	log.WithFields(log.Fields{
		"tenant": validator.Tenant(),
		"port":   cfg.Port,
	}).Info("starting sitenav")
	api.RunServer(cfg.Port, fetcher, validator, favService, setService)
}

// snsPublisherFromEnv builds the event publisher, honoring a local endpoint
// override for testing.
func snsPublisherFromEnv() (ports.Publisher, error) {
	ctx := context.Background()

	var snsEndpoint *string
	if se := os.Getenv("SNS_ENDPOINT"); se != "" {
		snsEndpoint = aws.String(se)
	}

	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}

	snsClient := sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if snsEndpoint != nil {
			o.BaseEndpoint = snsEndpoint
			if o.Region == "" {
				o.Region = "us-east-1"
			}
			credProvider := credentials.NewStaticCredentialsProvider("test", "test", "")
			o.Credentials = credProvider
		}
	})
	return pub.NewSNS(snsClient), nil
}
