package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/fantadebito/fantadebito/internal/bet-service/apperr"
	"github.com/fantadebito/fantadebito/internal/bet-service/dto"
	"github.com/fantadebito/fantadebito/internal/bet-service/engine"
	"github.com/fantadebito/fantadebito/internal/bet-service/users"
)

// Presigner gera URLs de leitura direta do objeto de tabela; o /api/init
// devolve uma para o caminho analítico no browser. Pode ser nil.
type Presigner interface {
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

type Server struct {
	log     *zap.Logger
	users   *users.Service
	engine  *engine.Engine
	presign Presigner
	bucket  string
	prefix  string
}

func NewServer(log *zap.Logger, us *users.Service, en *engine.Engine, presign Presigner, bucket, prefix string) *Server {
	return &Server{log: log, users: us, engine: en, presign: presign, bucket: bucket, prefix: prefix}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/init", s.post(s.initTable))
	mux.HandleFunc("/api/register", s.post(s.register))
	mux.HandleFunc("/api/login", s.post(s.login))
	mux.HandleFunc("/api/profile", s.post(s.profile))
	mux.HandleFunc("/api/users/update", s.post(s.updateUser))
	mux.HandleFunc("/api/users/reset", s.post(s.resetCounters))
	mux.HandleFunc("/api/users/purge", s.post(s.purgeUsers))
	mux.HandleFunc("/api/users/migrate", s.post(s.migrateUsers))
	mux.HandleFunc("/api/bets/create", s.post(s.createBet))
	mux.HandleFunc("/api/bets/join", s.post(s.joinBet))
	mux.HandleFunc("/api/bets/terminate", s.post(s.terminateBet))
	mux.HandleFunc("/api/bets/delete", s.post(s.deleteBet))
	mux.HandleFunc("/api/bets/list", s.post(s.listBets))
	return mux
}

func (s *Server) post(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h(w, r)
	}
}

func (s *Server) initTable(w http.ResponseWriter, r *http.Request) {
	created, err := s.users.Init(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	key := s.prefix + "users.bin"
	resp := dto.InitResponse{Status: "exists", Bucket: s.bucket, Key: key}
	code := http.StatusOK
	if created {
		resp.Status = "created"
		code = http.StatusCreated
	}
	if s.presign != nil {
		if u, perr := s.presign.PresignGet(r.Context(), key, time.Hour); perr == nil {
			resp.ReadURL = u
		} else {
			s.log.Warn("presign falhou", zap.Error(perr))
		}
	}
	writeJSON(w, code, resp)
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !s.decode(w, r, &req) {
		return
	}
	u, err := s.users.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.RegisterResponse{
		Status: "created",
		User:   dto.UserRef{ID: u.ID, Username: u.Username},
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !s.decode(w, r, &req) {
		return
	}
	u, err := s.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.LoginResponse{
		Status: "ok",
		User:   dto.LoginUser{ID: u.ID, Username: u.Username, IsAdmin: u.IsAdmin},
	})
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	var req dto.ProfileRequest
	if !s.decode(w, r, &req) {
		return
	}
	u, err := s.users.Profile(r.Context(), req.UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ProfileResponse{
		Status: "ok",
		User:   dto.ProfileUser{ID: u.ID, Username: u.Username, Wins: u.Wins, Losses: u.Losses},
	})
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateUserRequest
	if !s.decode(w, r, &req) {
		return
	}
	u, err := s.users.UpdateCredentials(r.Context(), req.UserID, req.NewUsername, req.NewPassword)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.UpdateUserResponse{
		Status: "updated",
		User:   dto.UserRef{ID: u.ID, Username: u.Username},
	})
}

func (s *Server) resetCounters(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetRequest
	if !s.decode(w, r, &req) {
		return
	}
	total, err := s.users.ResetCounters(r.Context(), req.UserID, req.Username, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ResetResponse{Status: "reset", Total: total})
}

func (s *Server) purgeUsers(w http.ResponseWriter, r *http.Request) {
	var req dto.PurgeRequest
	if !s.decode(w, r, &req) {
		return
	}
	total, err := s.users.Purge(r.Context(), req.Username, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.PurgeResponse{Status: "purged", Total: total})
}

func (s *Server) migrateUsers(w http.ResponseWriter, r *http.Request) {
	var req dto.MigrateRequest
	if !s.decode(w, r, &req) {
		return
	}
	total, promoted, err := s.users.Migrate(r.Context(), req.PromoteUsername, req.PromoteUserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp := dto.MigrateResponse{Status: "migrated", Total: total}
	if promoted != nil {
		resp.Promoted = &dto.UserRef{ID: promoted.ID, Username: promoted.Username}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) createBet(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateBetRequest
	if !s.decode(w, r, &req) {
		return
	}
	bet, err := s.engine.Create(r.Context(), req.UserID, req.Subject, req.Outcome, req.Stance, req.Probation)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.CreateBetResponse{Status: "created", Bet: dto.FromBet(bet)})
}

func (s *Server) joinBet(w http.ResponseWriter, r *http.Request) {
	var req dto.JoinBetRequest
	if !s.decode(w, r, &req) {
		return
	}
	bet, err := s.engine.Join(r.Context(), req.BetID, req.UserID, req.Stance)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.JoinBetResponse{Status: "joined", Bet: dto.FromBet(bet)})
}

func (s *Server) terminateBet(w http.ResponseWriter, r *http.Request) {
	var req dto.TerminateBetRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Realized == nil {
		s.fail(w, r, apperr.Validation("userId, betId and realized are required"))
		return
	}
	st, err := s.engine.Terminate(r.Context(), req.UserID, req.BetID, *req.Realized)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.TerminateBetResponse{
		Status:   "terminated",
		BetID:    st.BetID,
		Winners:  st.Winners,
		Losers:   st.Losers,
		Realized: boolStr(st.Realized),
	})
}

func (s *Server) deleteBet(w http.ResponseWriter, r *http.Request) {
	var req dto.DeleteBetRequest
	if !s.decode(w, r, &req) {
		return
	}
	if _, err := s.engine.Delete(r.Context(), req.UserID, req.BetID); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.DeleteBetResponse{Status: "deleted", BetID: req.BetID})
}

func (s *Server) listBets(w http.ResponseWriter, r *http.Request) {
	bets, err := s.engine.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	payload := make([]dto.BetPayload, 0, len(bets))
	for i := range bets {
		payload = append(payload, dto.FromBet(&bets[i]))
	}
	writeJSON(w, http.StatusOK, dto.ListBetsResponse{Status: "ok", Bets: payload})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return false
	}
	return true
}

// fail converte qualquer erro de operação no envelope uniforme; erros de
// storage saem como 500 com a mensagem repassada verbatim.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("operação falhou", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeError(w, status, err.Error())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, dto.ErrorResponse{Status: "error", Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
