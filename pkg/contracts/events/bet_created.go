package events

type BetCreated struct {
	BetID    string `json:"bet_id"`
	OwnerID  string `json:"owner_id"`
	Subject  string `json:"subject"`
	Outcome  string `json:"outcome"` // "admission" | "probation" | "non_admission"
	Stance   string `json:"stance"`  // lado do dono: "for" | "against"
	TsUnixMs int64  `json:"ts_unix_ms"`
}
