package main

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/fantadebito/fantadebito/internal/bet-service/engine"
	bhttp "github.com/fantadebito/fantadebito/internal/bet-service/http"
	"github.com/fantadebito/fantadebito/internal/bet-service/producer"
	"github.com/fantadebito/fantadebito/internal/bet-service/repo"
	"github.com/fantadebito/fantadebito/internal/bet-service/users"
	"github.com/fantadebito/fantadebito/internal/shared/config"
	skafka "github.com/fantadebito/fantadebito/internal/shared/kafka"
	"github.com/fantadebito/fantadebito/internal/shared/logger"
	"github.com/fantadebito/fantadebito/internal/shared/metrics"
	"github.com/fantadebito/fantadebito/internal/shared/objstore"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Object storage: cada tabela é um objeto único no bucket
	store, err := objstore.New(cfg.S3Bucket, objstore.Options{
		Endpoint:       cfg.S3Endpoint,
		Region:         cfg.S3Region,
		AccessKeyID:    cfg.S3AccessKeyID,
		SecretKey:      cfg.S3SecretKey,
		ForcePathStyle: cfg.S3ForcePathStyle,
	})
	if err != nil {
		log.Fatal("objstore", zap.Error(err))
	}

	// Kafka opcional: sem brokers configurados os eventos viram no-op
	var publ engine.Publisher = producer.Noop{}
	if cfg.KafkaBrokers != "" {
		kp := producer.NewKafkaPublisher(
			skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetCreated),
			skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetTerminated),
			skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetDeleted),
		)
		defer kp.Close()
		publ = kp
	}

	// deps
	tables := repo.NewTables(store, cfg.S3Prefix, log)
	usersvc := users.NewService(tables, log)
	eng := engine.New(tables, publ, log)

	// HTTP público
	api := bhttp.NewServer(log, usersvc, eng, store, cfg.S3Bucket, cfg.S3Prefix)
	apiSrv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler: api.Router(),
	}

	// metrics/health em porta separada
	metrics.StartMetricsServer(cfg.MetricsPort, store.Healthy)
	log.Info("metrics/health", zap.String("addr", ":"+cfg.MetricsPort))

	log.Info("bet-service listening",
		zap.String("addr", ":"+cfg.HTTPPort),
		zap.String("bucket", cfg.S3Bucket),
		zap.String("prefix", cfg.S3Prefix),
	)
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api", zap.Error(err))
	}
}
