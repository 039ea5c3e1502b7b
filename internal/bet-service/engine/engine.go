// Package engine implementa a máquina de estados das apostas: criar,
// entrar, terminar e remover, sempre na disciplina ler-tudo/transformar/
// reescrever-tudo do repositório de tabelas.
//
// Terminate e Delete tocam as duas tabelas com duas escritas incondicionais
// e sem atomicidade entre elas: users é gravada primeiro, então uma falha
// entre as escritas deixa contadores aplicados com a aposta ainda aberta
// até um retry concluir a segunda escrita. A janela existe e fica por conta
// do modelo de storage; os vencedores/perdedores são recomputados de forma
// determinística a partir dos dados gravados justamente para o retry chegar
// no mesmo resultado.
package engine

import (
	"context"
	"crypto/rand"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fantadebito/fantadebito/internal/bet-service/apperr"
	"github.com/fantadebito/fantadebito/internal/bet-service/repo"
	"github.com/fantadebito/fantadebito/internal/bet-service/users"
	"github.com/fantadebito/fantadebito/pkg/contracts/events"
)

// Publisher emite eventos de ciclo de vida. Falha de publicação nunca
// derruba a operação; a tabela é a fonte de verdade, o tópico é espelho.
type Publisher interface {
	BetCreated(ctx context.Context, e events.BetCreated) error
	BetTerminated(ctx context.Context, e events.BetTerminated) error
	BetDeleted(ctx context.Context, e events.BetDeleted) error
}

// Settlement é o resultado de um Terminate.
type Settlement struct {
	BetID    string
	Winners  []string
	Losers   []string
	Realized bool
}

type Engine struct {
	tables *repo.Tables
	publ   Publisher
	log    *zap.Logger

	now       func() time.Time
	newID     func() string
	newInvite func() string
}

func New(tables *repo.Tables, publ Publisher, log *zap.Logger) *Engine {
	return &Engine{
		tables:    tables,
		publ:      publ,
		log:       log,
		now:       time.Now,
		newID:     uuid.NewString,
		newInvite: inviteCode,
	}
}

// Create valida entrada, monta a aposta nova com o dono como primeiro
// participante e reescreve a tabela bets com a linha a mais.
func (e *Engine) Create(ctx context.Context, ownerID, subject, outcome, stance string, probation []repo.ProbationItem) (*repo.Bet, error) {
	if ownerID == "" || subject == "" {
		return nil, apperr.Validation("userId and subject are required")
	}
	if outcome == "" {
		outcome = repo.OutcomeAdmission
	}
	switch outcome {
	case repo.OutcomeAdmission, repo.OutcomeProbation, repo.OutcomeNonAdmission:
	default:
		return nil, apperr.Validation("invalid outcome")
	}
	stance = normalizeStance(stance)
	if outcome == repo.OutcomeProbation && len(probation) == 0 {
		return nil, apperr.Validation("probation outcome requires at least one subject/grade pair")
	}
	if outcome != repo.OutcomeProbation {
		probation = nil
	}

	bets, _, err := e.tables.ReadBets(ctx)
	if err != nil {
		return nil, err
	}

	bet := repo.Bet{
		ID:           e.newID(),
		OwnerID:      ownerID,
		Subject:      subject,
		Outcome:      outcome,
		Probation:    probation,
		InviteCode:   e.newInvite(),
		Participants: []repo.Participant{{UserID: ownerID, Stance: stance}},
		CreatedAt:    e.now().UTC().Format(time.RFC3339),
	}
	bets = append(bets, bet)
	if err := e.tables.WriteBets(ctx, bets); err != nil {
		return nil, err
	}

	e.publish(ctx, "bet_created", func(ctx context.Context) error {
		return e.publ.BetCreated(ctx, events.BetCreated{
			BetID:   bet.ID,
			OwnerID: bet.OwnerID,
			Subject: bet.Subject,
			Outcome: bet.Outcome,
			Stance:  stance,
		})
	})
	e.log.Info("aposta criada", zap.String("betId", bet.ID), zap.String("owner", ownerID))
	return &bet, nil
}

// Join insere ou sobrescreve o stance do usuário na aposta. Repetir o join
// troca o lado, nunca duplica a entrada.
func (e *Engine) Join(ctx context.Context, betID, userID, stance string) (*repo.Bet, error) {
	if betID == "" || userID == "" {
		return nil, apperr.Validation("userId and betId are required")
	}
	stance = normalizeStance(stance)

	bets, found, err := e.tables.ReadBets(ctx)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperr.NotFound("no bets exist yet")
	}
	idx := findBet(bets, betID)
	if idx < 0 {
		return nil, apperr.NotFound("bet not found")
	}
	if !bets[idx].Open() {
		return nil, apperr.Conflict("bet already terminated")
	}

	if p := bets[idx].FindParticipant(userID); p >= 0 {
		bets[idx].Participants[p].Stance = stance
	} else {
		bets[idx].Participants = append(bets[idx].Participants, repo.Participant{UserID: userID, Stance: stance})
	}

	if err := e.tables.WriteBets(ctx, bets); err != nil {
		return nil, err
	}
	return &bets[idx], nil
}

// Terminate liquida uma aposta aberta: aplica os contadores nos usuários,
// grava users, depois marca a aposta como terminada e grava bets.
// terminated_at sai de vazio para preenchido exatamente uma vez; a segunda
// chamada cai no Conflict antes de qualquer escrita.
func (e *Engine) Terminate(ctx context.Context, actingUserID, betID string, realized bool) (*Settlement, error) {
	if actingUserID == "" || betID == "" {
		return nil, apperr.Validation("userId and betId are required")
	}

	bets, found, err := e.tables.ReadBets(ctx)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperr.NotFound("no bets exist yet")
	}
	idx := findBet(bets, betID)
	if idx < 0 {
		return nil, apperr.NotFound("bet not found")
	}
	target := &bets[idx]
	if !target.Open() {
		return nil, apperr.Conflict("bet already terminated")
	}

	allUsers, usersFound, err := e.tables.ReadUsers(ctx)
	if err != nil {
		return nil, err
	}
	if !usersFound {
		return nil, apperr.NotFound("users table not found; run /api/init")
	}
	if target.OwnerID != actingUserID && !isAdmin(allUsers, actingUserID) {
		return nil, apperr.Forbidden("only the owner or an admin can terminate")
	}

	winners := target.Winners(realized)
	losers := target.Losers(realized)

	deltas := make([]users.CounterDelta, 0, len(winners)+len(losers))
	for _, id := range winners {
		deltas = append(deltas, users.CounterDelta{UserID: id, Wins: 1})
	}
	for _, id := range losers {
		deltas = append(deltas, users.CounterDelta{UserID: id, Losses: 1})
	}
	users.ApplyDeltas(allUsers, deltas)

	// users primeiro: se a segunda escrita falhar, o retry reconstrói a
	// mesma partição winners/losers a partir da aposta ainda aberta
	if err := e.tables.WriteUsers(ctx, allUsers); err != nil {
		return nil, err
	}

	target.TerminatedAt = e.now().UTC().Format(time.RFC3339)
	target.Realized = strconv.FormatBool(realized)
	if err := e.tables.WriteBets(ctx, bets); err != nil {
		return nil, err
	}

	e.publish(ctx, "bet_terminated", func(ctx context.Context) error {
		return e.publ.BetTerminated(ctx, events.BetTerminated{
			BetID:    betID,
			ActorID:  actingUserID,
			Realized: realized,
			Winners:  winners,
			Losers:   losers,
		})
	})
	e.log.Info("aposta liquidada",
		zap.String("betId", betID),
		zap.Bool("realized", realized),
		zap.Int("winners", len(winners)),
		zap.Int("losers", len(losers)),
	)
	return &Settlement{BetID: betID, Winners: winners, Losers: losers, Realized: realized}, nil
}

// Delete remove uma aposta (só admin). Se ela já tinha sido liquidada, a
// mesma partição winners/losers é recomputada dos participantes gravados e
// os contadores são estornados com piso em zero.
func (e *Engine) Delete(ctx context.Context, actingUserID, betID string) (reversed bool, err error) {
	if actingUserID == "" || betID == "" {
		return false, apperr.Validation("userId and betId are required")
	}

	allUsers, usersFound, err := e.tables.ReadUsers(ctx)
	if err != nil {
		return false, err
	}
	if !usersFound || !isAdmin(allUsers, actingUserID) {
		return false, apperr.Forbidden("only an admin can delete bets")
	}

	bets, found, err := e.tables.ReadBets(ctx)
	if err != nil {
		return false, err
	}
	if !found {
		return false, apperr.NotFound("bet not found")
	}
	idx := findBet(bets, betID)
	if idx < 0 {
		return false, apperr.NotFound("bet not found")
	}
	target := bets[idx]

	if !target.Open() && (target.Realized == "true" || target.Realized == "false") {
		realized := target.Realized == "true"
		deltas := make([]users.CounterDelta, 0, len(target.Participants))
		for _, id := range target.Winners(realized) {
			deltas = append(deltas, users.CounterDelta{UserID: id, Wins: -1})
		}
		for _, id := range target.Losers(realized) {
			deltas = append(deltas, users.CounterDelta{UserID: id, Losses: -1})
		}
		if users.ApplyDeltas(allUsers, deltas) {
			if err := e.tables.WriteUsers(ctx, allUsers); err != nil {
				return false, err
			}
			reversed = true
		}
	}

	kept := append(bets[:idx:idx], bets[idx+1:]...)
	if err := e.tables.WriteBets(ctx, kept); err != nil {
		return reversed, err
	}

	e.publish(ctx, "bet_deleted", func(ctx context.Context) error {
		return e.publ.BetDeleted(ctx, events.BetDeleted{
			BetID:    betID,
			ActorID:  actingUserID,
			Reversed: reversed,
		})
	})
	e.log.Info("aposta removida", zap.String("betId", betID), zap.Bool("reversed", reversed))
	return reversed, nil
}

// List devolve todas as apostas; tabela ausente é lista vazia, não erro.
func (e *Engine) List(ctx context.Context) ([]repo.Bet, error) {
	bets, _, err := e.tables.ReadBets(ctx)
	if err != nil {
		return nil, err
	}
	return bets, nil
}

func (e *Engine) publish(ctx context.Context, topic string, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		e.log.Warn("publicação de evento falhou", zap.String("topic", topic), zap.Error(err))
	}
}

func findBet(bets []repo.Bet, id string) int {
	for i := range bets {
		if bets[i].ID == id {
			return i
		}
	}
	return -1
}

func isAdmin(all []repo.User, id string) bool {
	if i := users.FindByID(all, id); i >= 0 {
		return all[i].IsAdmin
	}
	return false
}

// stance inválido ou ausente vira "for"
func normalizeStance(s string) string {
	if s == repo.StanceAgainst {
		return repo.StanceAgainst
	}
	return repo.StanceFor
}

const inviteAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// inviteCode gera o código de convite de 6 caracteres. É só exibição, não
// controla acesso.
func inviteCode() string {
	b := make([]byte, 6)
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = inviteAlphabet[int(b[i])%len(inviteAlphabet)]
	}
	return string(b)
}
