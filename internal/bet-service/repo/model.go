package repo

import (
	"encoding/json"
	"fmt"
)

// Esiti possíveis de uma aposta acadêmica.
const (
	OutcomeAdmission    = "admission"
	OutcomeProbation    = "probation"
	OutcomeNonAdmission = "non_admission"
)

// Lado declarado de um participante.
const (
	StanceFor     = "for"
	StanceAgainst = "against"
)

// User é uma linha da tabela users.
type User struct {
	ID       string
	Username string
	Password string // token de credencial, ou senha legada em claro
	Wins     int32
	Losses   int32
	IsAdmin  bool
}

// Participant é a forma normalizada de um participante. Linhas antigas
// gravavam ids crus em participants_json; esses entram com Stance vazio e
// nunca ganham nem perdem.
type Participant struct {
	UserID string `json:"userId"`
	Stance string `json:"stance,omitempty"`
}

// ProbationItem é um par matéria/nota; só faz sentido com esito probation.
type ProbationItem struct {
	Subject string  `json:"subject"`
	Grade   float64 `json:"grade"`
}

// Bet é uma linha da tabela bets. Timestamps ficam como strings ISO porque
// é exatamente isso que o formato de tabela carrega.
type Bet struct {
	ID           string
	OwnerID      string
	Subject      string
	Outcome      string
	Probation    []ProbationItem
	InviteCode   string
	Participants []Participant
	CreatedAt    string
	TerminatedAt string // vazio = aberta
	Realized     string // "" | "true" | "false"
}

// Open informa se a aposta ainda aceita join/terminate.
func (b *Bet) Open() bool { return b.TerminatedAt == "" }

// FindParticipant devolve o índice do participante ou -1.
func (b *Bet) FindParticipant(userID string) int {
	for i, p := range b.Participants {
		if p.UserID == userID {
			return i
		}
	}
	return -1
}

// Winners e Losers particionam os participantes de forma determinística a
// partir do realized gravado; a mesma função serve à liquidação e ao estorno.
func (b *Bet) Winners(realized bool) []string {
	return b.withStance(winningStance(realized))
}

func (b *Bet) Losers(realized bool) []string {
	return b.withStance(winningStance(!realized))
}

func winningStance(realized bool) string {
	if realized {
		return StanceFor
	}
	return StanceAgainst
}

func (b *Bet) withStance(stance string) []string {
	ids := make([]string, 0, len(b.Participants))
	for _, p := range b.Participants {
		if p.Stance == stance {
			ids = append(ids, p.UserID)
		}
	}
	return ids
}

// decodeParticipants aceita os dois formatos históricos de participants_json
// (id cru ou objeto {userId, stance}) e normaliza tudo na forma etiquetada.
// Nenhuma camada acima desta volta a distinguir os formatos.
func decodeParticipants(raw string) ([]Participant, error) {
	if raw == "" {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("participants_json inválido: %w", err)
	}
	out := make([]Participant, 0, len(items))
	for _, item := range items {
		var id string
		if err := json.Unmarshal(item, &id); err == nil {
			if id != "" {
				out = append(out, Participant{UserID: id})
			}
			continue
		}
		var p Participant
		if err := json.Unmarshal(item, &p); err != nil {
			return nil, fmt.Errorf("participants_json inválido: %w", err)
		}
		if p.UserID != "" {
			out = append(out, p)
		}
	}
	return out, nil
}

func encodeParticipants(ps []Participant) string {
	if ps == nil {
		ps = []Participant{}
	}
	b, _ := json.Marshal(ps)
	return string(b)
}

func decodeProbation(raw string) ([]ProbationItem, error) {
	if raw == "" || raw == "[]" {
		return nil, nil
	}
	var items []ProbationItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("sospensione_json inválido: %w", err)
	}
	return items, nil
}

func encodeProbation(items []ProbationItem) string {
	if items == nil {
		items = []ProbationItem{}
	}
	b, _ := json.Marshal(items)
	return string(b)
}
