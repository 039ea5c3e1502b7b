package dto

import "github.com/fantadebito/fantadebito/internal/bet-service/repo"

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type ProfileRequest struct {
	UserID string `json:"userId"`
}

type UpdateUserRequest struct {
	UserID      string `json:"userId"`
	NewUsername string `json:"newUsername,omitempty"`
	NewPassword string `json:"newPassword,omitempty"`
}

// ResetRequest autoriza por userId ou por username+password.
type ResetRequest struct {
	UserID   string `json:"userId,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

type PurgeRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type MigrateRequest struct {
	PromoteUsername string `json:"promoteUsername,omitempty"`
	PromoteUserID   string `json:"promoteUserId,omitempty"`
}

type CreateBetRequest struct {
	UserID    string               `json:"userId"`
	Subject   string               `json:"subject"`
	Outcome   string               `json:"outcome"` // "admission" | "probation" | "non_admission"
	Stance    string               `json:"stance"`  // "for" | "against"
	Probation []repo.ProbationItem `json:"probation_detail,omitempty"`
}

type JoinBetRequest struct {
	UserID string `json:"userId"`
	BetID  string `json:"betId"`
	Stance string `json:"stance"`
}

// Realized é ponteiro porque ausência e false são coisas diferentes.
type TerminateBetRequest struct {
	UserID   string `json:"userId"`
	BetID    string `json:"betId"`
	Realized *bool  `json:"realized"`
}

type DeleteBetRequest struct {
	UserID string `json:"userId"`
	BetID  string `json:"betId"`
}
