package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Contadores de I/O do repositório de tabelas. Cada operação do serviço
// refaz o fetch completo do objeto, então read/write aqui conta objetos
// inteiros, não linhas.
var (
	TableReads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fantadebito_table_reads_total",
		Help: "Leituras completas de tabela no object storage",
	}, []string{"table"})

	TableWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fantadebito_table_writes_total",
		Help: "Reescritas completas de tabela no object storage",
	}, []string{"table"})

	StorageErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fantadebito_storage_errors_total",
		Help: "Erros de fetch/overwrite não classificados como not-found",
	}, []string{"table", "op"})
)
