package config

import (
	"os"

	ctopics "github.com/fantadebito/fantadebito/pkg/contracts/topics"
)

// Config centraliza variáveis de ambiente e parâmetros de execução dos serviços
// Inclui credenciais do object storage, tópicos Kafka e portas
type Config struct {
	Env         string // "local", "dev", "prod"
	ServiceName string // ex: "bet-service", "audit-worker"

	// Object storage (S3-compatível)
	S3Endpoint       string
	S3Region         string
	S3AccessKeyID    string
	S3SecretKey      string
	S3Bucket         string
	S3Prefix         string // "" ou "pasta/"
	S3ForcePathStyle bool

	// Kafka; vazio desabilita a publicação de eventos
	KafkaBrokers string // "a:9092,b:9092"

	TopicBetCreated    string
	TopicBetTerminated string
	TopicBetDeleted    string

	// Portas do serviço atual
	HTTPPort    string // Porta pública (API REST)
	MetricsPort string // Porta exclusiva para /metrics e /healthz
}

// Load carrega variáveis de ambiente e define defaults para cada serviço
func Load() Config {
	svc := getEnv("SERVICE_NAME", "bet-service")
	env := getEnv("ENV", "local")

	cfg := Config{
		Env:         env,
		ServiceName: svc,

		S3Endpoint:       getEnv("S3_ENDPOINT", "s3.cubbit.eu"),
		S3Region:         getEnv("S3_REGION", "us-east-1"),
		S3AccessKeyID:    getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretKey:      getEnv("S3_SECRET_ACCESS_KEY", ""),
		S3Bucket:         getEnv("S3_BUCKET", "fantadebito"),
		S3Prefix:         getEnv("S3_PREFIX", ""),
		S3ForcePathStyle: getEnv("S3_FORCE_PATH_STYLE", "false") == "true",

		KafkaBrokers: getEnv("KAFKA_BROKERS", ""),

		TopicBetCreated:    getEnv("KAFKA_TOPIC_BET_CREATED", ctopics.BetCreated),
		TopicBetTerminated: getEnv("KAFKA_TOPIC_BET_TERMINATED", ctopics.BetTerminated),
		TopicBetDeleted:    getEnv("KAFKA_TOPIC_BET_DELETED", ctopics.BetDeleted),
	}

	// Portas padrão por serviço
	switch svc {
	case "audit-worker":
		cfg.HTTPPort = getEnv("HTTP_PORT_AUDIT", "") // worker não expõe HTTP público
		cfg.MetricsPort = getEnv("METRICS_PORT_AUDIT", "9091")
	default:
		cfg.HTTPPort = getEnv("HTTP_PORT", "8080")
		cfg.MetricsPort = getEnv("METRICS_PORT", "9090")
	}

	return cfg
}

// getEnv retorna o valor da variável de ambiente ou o default
func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}
