package dto

import "github.com/fantadebito/fantadebito/internal/bet-service/repo"

// Toda resposta carrega um discriminador status; em erro vem só
// {status:"error", message}.
type ErrorResponse struct {
	Status  string `json:"status"` // sempre "error"
	Message string `json:"message"`
}

type UserRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type RegisterResponse struct {
	Status string  `json:"status"` // "created"
	User   UserRef `json:"user"`
}

type LoginResponse struct {
	Status string    `json:"status"` // "ok"
	User   LoginUser `json:"user"`
}

type LoginUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}

type ProfileResponse struct {
	Status string      `json:"status"` // "ok"
	User   ProfileUser `json:"user"`
}

type ProfileUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Wins     int32  `json:"wins"`
	Losses   int32  `json:"losses"`
}

type UpdateUserResponse struct {
	Status string  `json:"status"` // "updated"
	User   UserRef `json:"user"`
}

type ResetResponse struct {
	Status string `json:"status"` // "reset"
	Total  int    `json:"total"`
}

type PurgeResponse struct {
	Status string `json:"status"` // "purged"
	Total  int    `json:"total"`
}

type MigrateResponse struct {
	Status   string   `json:"status"` // "migrated"
	Total    int      `json:"total"`
	Promoted *UserRef `json:"promoted"`
}

type InitResponse struct {
	Status  string `json:"status"` // "created" | "exists"
	Bucket  string `json:"bucket"`
	Key     string `json:"key"`
	ReadURL string `json:"readUrl,omitempty"`
}

// BetPayload é a projeção de uma aposta para a UI: participantes achatados
// numa lista de ids mais a lista paralela {user_id, stance}, e o detalhe de
// probation já estruturado.
type BetPayload struct {
	ID           string               `json:"id"`
	OwnerID      string               `json:"owner_id"`
	Subject      string               `json:"subject"`
	Outcome      string               `json:"outcome"`
	Probation    []repo.ProbationItem `json:"probation_detail"`
	InviteCode   string               `json:"invite_code"`
	Participants []string             `json:"participants"`
	Stances      []StanceEntry        `json:"stances"`
	CreatedAt    string               `json:"created_at"`
	TerminatedAt string               `json:"terminated_at"`
	Realized     string               `json:"realized"`
}

type StanceEntry struct {
	UserID string `json:"user_id"`
	Stance string `json:"stance,omitempty"`
}

func FromBet(b *repo.Bet) BetPayload {
	participants := make([]string, 0, len(b.Participants))
	stances := make([]StanceEntry, 0, len(b.Participants))
	for _, p := range b.Participants {
		participants = append(participants, p.UserID)
		stances = append(stances, StanceEntry{UserID: p.UserID, Stance: p.Stance})
	}
	probation := b.Probation
	if probation == nil {
		probation = []repo.ProbationItem{}
	}
	return BetPayload{
		ID:           b.ID,
		OwnerID:      b.OwnerID,
		Subject:      b.Subject,
		Outcome:      b.Outcome,
		Probation:    probation,
		InviteCode:   b.InviteCode,
		Participants: participants,
		Stances:      stances,
		CreatedAt:    b.CreatedAt,
		TerminatedAt: b.TerminatedAt,
		Realized:     b.Realized,
	}
}

type CreateBetResponse struct {
	Status string     `json:"status"` // "created"
	Bet    BetPayload `json:"bet"`
}

type JoinBetResponse struct {
	Status string     `json:"status"` // "joined"
	Bet    BetPayload `json:"bet"`
}

type TerminateBetResponse struct {
	Status   string   `json:"status"` // "terminated"
	BetID    string   `json:"betId"`
	Winners  []string `json:"winners"`
	Losers   []string `json:"losers"`
	Realized string   `json:"realized"`
}

type DeleteBetResponse struct {
	Status string `json:"status"` // "deleted"
	BetID  string `json:"betId"`
}

type ListBetsResponse struct {
	Status string       `json:"status"` // "ok"
	Bets   []BetPayload `json:"bets"`
}
