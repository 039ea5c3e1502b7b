// Package users é a visão da tabela users como acumulador de contadores
// win/loss e flags de admin, mais o gerenciamento de contas.
package users

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fantadebito/fantadebito/internal/bet-service/apperr"
	"github.com/fantadebito/fantadebito/internal/bet-service/repo"
	"github.com/fantadebito/fantadebito/internal/shared/password"
)

const minUsernameLen = 3

type Service struct {
	tables *repo.Tables
	log    *zap.Logger
}

func NewService(tables *repo.Tables, log *zap.Logger) *Service {
	return &Service{tables: tables, log: log}
}

// Register cria um usuário novo com contadores zerados e senha hasheada.
// Duplicata de username é case-sensitive na criação.
func (s *Service) Register(ctx context.Context, username, pass string) (*repo.User, error) {
	if username == "" || pass == "" {
		return nil, apperr.Validation("username and password are required")
	}
	if len(username) < minUsernameLen {
		return nil, apperr.Validation("username too short")
	}

	all, _, err := s.tables.ReadUsers(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range all {
		if u.Username == username {
			return nil, apperr.Conflict("username already taken")
		}
	}

	hashed, err := password.Hash(pass)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	user := repo.User{
		ID:       uuid.NewString(),
		Username: username,
		Password: hashed,
	}
	all = append(all, user)
	if err := s.tables.WriteUsers(ctx, all); err != nil {
		return nil, err
	}

	s.log.Info("usuário registrado", zap.String("userId", user.ID))
	return &user, nil
}

// Login valida credenciais via Credential Service; tabela ausente aponta
// para o bootstrap em vez de fingir credencial inválida.
func (s *Service) Login(ctx context.Context, username, pass string) (*repo.User, error) {
	if username == "" || pass == "" {
		return nil, apperr.Validation("username and password are required")
	}
	all, found, err := s.tables.ReadUsers(ctx)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperr.NotFound("users table not found; run /api/init")
	}
	for i := range all {
		if all[i].Username == username && password.Verify(pass, all[i].Password) {
			return &all[i], nil
		}
	}
	return nil, apperr.Auth("invalid credentials")
}

// Profile é leitura pura de uma linha.
func (s *Service) Profile(ctx context.Context, userID string) (*repo.User, error) {
	if userID == "" {
		return nil, apperr.Validation("userId is required")
	}
	all, _, err := s.tables.ReadUsers(ctx)
	if err != nil {
		return nil, err
	}
	if i := FindByID(all, userID); i >= 0 {
		return &all[i], nil
	}
	return nil, apperr.NotFound("user not found")
}

// UpdateCredentials troca username e/ou senha. A colisão de username aqui
// é case-insensitive, diferente da criação.
func (s *Service) UpdateCredentials(ctx context.Context, userID, newUsername, newPassword string) (*repo.User, error) {
	if userID == "" || (newUsername == "" && newPassword == "") {
		return nil, apperr.Validation("userId and at least one of newUsername/newPassword are required")
	}
	all, _, err := s.tables.ReadUsers(ctx)
	if err != nil {
		return nil, err
	}
	idx := FindByID(all, userID)
	if idx < 0 {
		return nil, apperr.NotFound("user not found")
	}

	if newUsername != "" {
		for i, u := range all {
			if i != idx && strings.EqualFold(u.Username, newUsername) {
				return nil, apperr.Conflict("username already in use")
			}
		}
		all[idx].Username = newUsername
	}
	if newPassword != "" {
		hashed, herr := password.Hash(newPassword)
		if herr != nil {
			return nil, apperr.Storage(herr)
		}
		all[idx].Password = hashed
	}

	if err := s.tables.WriteUsers(ctx, all); err != nil {
		return nil, err
	}
	return &all[idx], nil
}

// AdjustCounters aplica deltas de win/loss numa única passada
// ler-transformar-reescrever, com piso em zero.
func (s *Service) AdjustCounters(ctx context.Context, deltas ...CounterDelta) error {
	if len(deltas) == 0 {
		return nil
	}
	all, _, err := s.tables.ReadUsers(ctx)
	if err != nil {
		return err
	}
	if !ApplyDeltas(all, deltas) {
		return nil
	}
	return s.tables.WriteUsers(ctx, all)
}

// SetAdmin liga ou desliga o flag de admin de um usuário.
func (s *Service) SetAdmin(ctx context.Context, userID string, isAdmin bool) error {
	all, _, err := s.tables.ReadUsers(ctx)
	if err != nil {
		return err
	}
	idx := FindByID(all, userID)
	if idx < 0 {
		return apperr.NotFound("user not found")
	}
	if all[idx].IsAdmin == isAdmin {
		return nil
	}
	all[idx].IsAdmin = isAdmin
	return s.tables.WriteUsers(ctx, all)
}

// ResetCounters zera wins/losses de todos os usuários. O admin pode agir
// por userId ou por username+senha.
func (s *Service) ResetCounters(ctx context.Context, actingUserID, username, pass string) (int, error) {
	all, found, err := s.tables.ReadUsers(ctx)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, apperr.NotFound("users table not found; run /api/init")
	}

	acting := s.resolveActing(all, actingUserID, username, pass)
	if acting == nil || !acting.IsAdmin {
		return 0, apperr.Forbidden("only an admin can reset counters")
	}

	for i := range all {
		all[i].Wins = 0
		all[i].Losses = 0
	}
	if err := s.tables.WriteUsers(ctx, all); err != nil {
		return 0, err
	}
	s.log.Info("contadores zerados", zap.Int("total", len(all)), zap.String("by", acting.ID))
	return len(all), nil
}

// Purge remove todas as linhas da tabela users, admin incluído.
func (s *Service) Purge(ctx context.Context, username, pass string) (int, error) {
	all, found, err := s.tables.ReadUsers(ctx)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, apperr.NotFound("users table not found; run /api/init")
	}

	acting := s.resolveActing(all, "", username, pass)
	if acting == nil || !acting.IsAdmin {
		return 0, apperr.Forbidden("only an admin can purge users")
	}

	if err := s.tables.WriteUsers(ctx, nil); err != nil {
		return 0, err
	}
	s.log.Warn("tabela users esvaziada", zap.Int("removed", len(all)), zap.String("by", acting.ID))
	return len(all), nil
}

// Migrate reescreve a tabela pelo schema corrente e, opcionalmente, promove
// um usuário a admin por username ou id. Idempotente: promover quem já é
// admin não muda nada.
func (s *Service) Migrate(ctx context.Context, promoteUsername, promoteUserID string) (int, *repo.User, error) {
	all, found, err := s.tables.ReadUsers(ctx)
	if err != nil {
		return 0, nil, err
	}
	if !found {
		return 0, nil, apperr.NotFound("users table not found; run /api/init")
	}

	promoteUsername = strings.TrimSpace(promoteUsername)
	promoteUserID = strings.TrimSpace(promoteUserID)

	var promoted *repo.User
	for i := range all {
		if !all[i].IsAdmin {
			if (promoteUsername != "" && all[i].Username == promoteUsername) ||
				(promoteUserID != "" && all[i].ID == promoteUserID) {
				all[i].IsAdmin = true
			}
		}
		if all[i].IsAdmin && (all[i].Username == promoteUsername || all[i].ID == promoteUserID) {
			promoted = &all[i]
		}
	}

	if err := s.tables.WriteUsers(ctx, all); err != nil {
		return 0, nil, err
	}
	return len(all), promoted, nil
}

// Init cria a tabela users com as duas linhas seed se ela ainda não existir.
// A senha do admin seed fica em claro de propósito: é a linha legada que o
// caminho de compatibilidade do Credential Service cobre.
func (s *Service) Init(ctx context.Context) (created bool, err error) {
	exists, err := s.tables.UsersExist(ctx)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	seed := []repo.User{
		{ID: "1", Username: "demo", Password: "demo", IsAdmin: true},
		{ID: "2", Username: "mn", Password: "1234"},
	}
	if err := s.tables.WriteUsers(ctx, seed); err != nil {
		return false, err
	}
	s.log.Info("tabela users criada com linhas seed")
	return true, nil
}

func (s *Service) resolveActing(all []repo.User, actingUserID, username, pass string) *repo.User {
	if actingUserID != "" {
		if i := FindByID(all, actingUserID); i >= 0 {
			return &all[i]
		}
		return nil
	}
	if username != "" && pass != "" {
		for i := range all {
			if all[i].Username == username && password.Verify(pass, all[i].Password) {
				return &all[i]
			}
		}
	}
	return nil
}
