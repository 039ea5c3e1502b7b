package main

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/fantadebito/fantadebito/internal/shared/config"
	"github.com/fantadebito/fantadebito/internal/shared/kafka"
	"github.com/fantadebito/fantadebito/internal/shared/logger"
	ev "github.com/fantadebito/fantadebito/pkg/contracts/events"
)

// audit-worker consome os tópicos de ciclo de vida e registra cada evento.
// É a trilha de auditoria das liquidações: quem terminou o quê, quem ganhou
// e quem perdeu, e quais remoções estornaram contadores.
func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if cfg.KafkaBrokers == "" {
		log.Fatal("KAFKA_BROKERS é obrigatório para o audit-worker")
	}

	// Servidor HTTP só para métricas Prometheus e healthcheck
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		addr := ":" + cfg.MetricsPort
		log.Info("metrics/health", zap.String("addr", addr))
		_ = http.ListenAndServe(addr, mux)
	}()

	ctx := context.Background()
	var wg sync.WaitGroup

	consume := func(topic string, handle func([]byte) (zap.Field, []zap.Field, error)) {
		defer wg.Done()
		reader := kafka.NewReader(cfg.KafkaBrokers, topic, "audit-worker")
		defer reader.Close()
		log.Info("consumindo", zap.String("topic", topic))
		for {
			msg, err := reader.ReadMessage(ctx)
			if err != nil {
				log.Warn("kafka read", zap.String("topic", topic), zap.Error(err))
				time.Sleep(time.Second)
				continue
			}
			head, rest, herr := handle(msg.Value)
			if herr != nil {
				log.Error("unmarshal", zap.String("topic", topic), zap.Error(herr))
				continue
			}
			log.Info("audit: "+topic, append([]zap.Field{head, partition(msg)}, rest...)...)
		}
	}

	wg.Add(3)
	go consume(cfg.TopicBetCreated, func(b []byte) (zap.Field, []zap.Field, error) {
		var e ev.BetCreated
		if err := json.Unmarshal(b, &e); err != nil {
			return zap.Skip(), nil, err
		}
		return zap.String("betId", e.BetID), []zap.Field{
			zap.String("owner", e.OwnerID),
			zap.String("outcome", e.Outcome),
		}, nil
	})
	go consume(cfg.TopicBetTerminated, func(b []byte) (zap.Field, []zap.Field, error) {
		var e ev.BetTerminated
		if err := json.Unmarshal(b, &e); err != nil {
			return zap.Skip(), nil, err
		}
		return zap.String("betId", e.BetID), []zap.Field{
			zap.String("actor", e.ActorID),
			zap.Bool("realized", e.Realized),
			zap.Strings("winners", e.Winners),
			zap.Strings("losers", e.Losers),
		}, nil
	})
	go consume(cfg.TopicBetDeleted, func(b []byte) (zap.Field, []zap.Field, error) {
		var e ev.BetDeleted
		if err := json.Unmarshal(b, &e); err != nil {
			return zap.Skip(), nil, err
		}
		return zap.String("betId", e.BetID), []zap.Field{
			zap.String("actor", e.ActorID),
			zap.Bool("reversed", e.Reversed),
		}, nil
	})

	wg.Wait()
}

func partition(m kafkago.Message) zap.Field {
	return zap.Int("partition", m.Partition)
}
