package events

// Evento emitido após a liquidação de uma aposta: contadores já aplicados
// na tabela users e aposta marcada como terminada.
type BetTerminated struct {
	BetID    string   `json:"bet_id"`
	ActorID  string   `json:"actor_id"`
	Realized bool     `json:"realized"`
	Winners  []string `json:"winners"`
	Losers   []string `json:"losers"`
	TsUnixMs int64    `json:"ts_unix_ms"`
}
