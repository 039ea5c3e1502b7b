package events

type BetDeleted struct {
	BetID    string `json:"bet_id"`
	ActorID  string `json:"actor_id"`
	Reversed bool   `json:"reversed"` // true quando a remoção estornou contadores
	TsUnixMs int64  `json:"ts_unix_ms"`
}
