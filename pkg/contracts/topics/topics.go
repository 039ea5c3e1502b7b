package topics

// Tópicos do ciclo de vida das apostas. Consumidos pelo audit-worker e por
// qualquer integração externa interessada nas liquidações.
const (
	BetCreated    = "bet_created"
	BetTerminated = "bet_terminated"
	BetDeleted    = "bet_deleted"
)
