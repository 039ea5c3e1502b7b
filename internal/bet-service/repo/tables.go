package repo

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fantadebito/fantadebito/internal/bet-service/apperr"
	"github.com/fantadebito/fantadebito/internal/shared/colfile"
	"github.com/fantadebito/fantadebito/internal/shared/metrics"
	"github.com/fantadebito/fantadebito/internal/shared/objstore"
)

const (
	TableUsers = "users"
	TableBets  = "bets"
)

// ObjectStore é o que o repositório precisa do storage; o client minio
// satisfaz, e os testes usam um fake em memória.
type ObjectStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
}

var usersSchema = colfile.Schema{
	{Name: "id", Type: colfile.TypeString},
	{Name: "username", Type: colfile.TypeString},
	{Name: "password", Type: colfile.TypeString},
	{Name: "wins", Type: colfile.TypeInt32},
	{Name: "losses", Type: colfile.TypeInt32},
	{Name: "is_admin", Type: colfile.TypeBool},
}

var betsSchema = colfile.Schema{
	{Name: "id", Type: colfile.TypeString},
	{Name: "owner_id", Type: colfile.TypeString},
	{Name: "subject", Type: colfile.TypeString},
	{Name: "esito", Type: colfile.TypeString},
	{Name: "sospensione_json", Type: colfile.TypeString},
	{Name: "invite_code", Type: colfile.TypeString},
	{Name: "participants_json", Type: colfile.TypeString},
	{Name: "created_at", Type: colfile.TypeString},
	{Name: "terminated_at", Type: colfile.TypeString},
	{Name: "realized", Type: colfile.TypeString},
}

// Tables implementa a disciplina de reescrita total: toda mutação lê a
// tabela inteira do bucket, transforma em memória e sobrescreve o objeto.
// Não existe caminho de append nem de update parcial. Duas operações
// concorrentes na mesma tabela leem o mesmo estado e a última escrita
// descarta silenciosamente a outra; isso é documentado, não mitigado.
type Tables struct {
	store  ObjectStore
	prefix string
	log    *zap.Logger
}

func NewTables(store ObjectStore, prefix string, log *zap.Logger) *Tables {
	return &Tables{store: store, prefix: prefix, log: log}
}

func (t *Tables) key(table string) string { return t.prefix + table + ".bin" }

// UsersExist verifica se o objeto da tabela já foi criado (bootstrap).
func (t *Tables) UsersExist(ctx context.Context) (bool, error) {
	ok, err := t.store.Exists(ctx, t.key(TableUsers))
	if err != nil {
		return false, apperr.Storage(err)
	}
	return ok, nil
}

// readRows busca e decodifica uma tabela inteira. Objeto ausente vira
// (nil, false, nil): é condição recuperável, não erro. Qualquer outra
// falha de storage propaga.
func (t *Tables) readRows(ctx context.Context, table string) ([]colfile.Row, bool, error) {
	data, err := t.store.Get(ctx, t.key(table))
	if err != nil {
		if objstore.IsNotFound(err) {
			return nil, false, nil
		}
		metrics.StorageErrors.WithLabelValues(table, "read").Inc()
		return nil, false, apperr.Storage(err)
	}
	f, err := colfile.Decode(data)
	if err != nil {
		metrics.StorageErrors.WithLabelValues(table, "read").Inc()
		return nil, false, apperr.Storage(fmt.Errorf("decodificar %s: %w", table, err))
	}
	metrics.TableReads.WithLabelValues(table).Inc()
	return f.Rows, true, nil
}

func (t *Tables) writeRows(ctx context.Context, table string, schema colfile.Schema, rows []colfile.Row) error {
	data, err := colfile.Encode(schema, rows)
	if err != nil {
		return apperr.Storage(fmt.Errorf("codificar %s: %w", table, err))
	}
	if err := t.store.Put(ctx, t.key(table), data); err != nil {
		metrics.StorageErrors.WithLabelValues(table, "write").Inc()
		return apperr.Storage(err)
	}
	metrics.TableWrites.WithLabelValues(table).Inc()
	t.log.Debug("tabela sobrescrita", zap.String("table", table), zap.Int("rows", len(rows)))
	return nil
}

// ReadUsers devolve todas as linhas de users; tabela ausente = conjunto
// vazio com found=false.
func (t *Tables) ReadUsers(ctx context.Context) ([]User, bool, error) {
	rows, found, err := t.readRows(ctx, TableUsers)
	if err != nil {
		return nil, false, err
	}
	users := make([]User, 0, len(rows))
	for _, r := range rows {
		users = append(users, User{
			ID:       str(r["id"]),
			Username: str(r["username"]),
			Password: str(r["password"]),
			Wins:     i32(r["wins"]),
			Losses:   i32(r["losses"]),
			IsAdmin:  boolean(r["is_admin"]),
		})
	}
	return users, found, nil
}

// WriteUsers substitui a tabela users inteira, linhas intactas incluídas.
func (t *Tables) WriteUsers(ctx context.Context, users []User) error {
	rows := make([]colfile.Row, 0, len(users))
	for _, u := range users {
		rows = append(rows, colfile.Row{
			"id":       u.ID,
			"username": u.Username,
			"password": u.Password,
			"wins":     u.Wins,
			"losses":   u.Losses,
			"is_admin": u.IsAdmin,
		})
	}
	return t.writeRows(ctx, TableUsers, usersSchema, rows)
}

// ReadBets devolve todas as apostas já com os participantes normalizados;
// nenhuma camada acima volta a ver o JSON cru.
func (t *Tables) ReadBets(ctx context.Context) ([]Bet, bool, error) {
	rows, found, err := t.readRows(ctx, TableBets)
	if err != nil {
		return nil, false, err
	}
	bets := make([]Bet, 0, len(rows))
	for _, r := range rows {
		participants, perr := decodeParticipants(str(r["participants_json"]))
		if perr != nil {
			return nil, false, apperr.Storage(perr)
		}
		probation, serr := decodeProbation(str(r["sospensione_json"]))
		if serr != nil {
			return nil, false, apperr.Storage(serr)
		}
		outcome := str(r["esito"])
		if outcome == "" {
			outcome = OutcomeAdmission
		}
		bets = append(bets, Bet{
			ID:           str(r["id"]),
			OwnerID:      str(r["owner_id"]),
			Subject:      str(r["subject"]),
			Outcome:      outcome,
			Probation:    probation,
			InviteCode:   str(r["invite_code"]),
			Participants: participants,
			CreatedAt:    str(r["created_at"]),
			TerminatedAt: str(r["terminated_at"]),
			Realized:     str(r["realized"]),
		})
	}
	return bets, found, nil
}

// WriteBets substitui a tabela bets inteira, sempre na forma estruturada
// de participants_json.
func (t *Tables) WriteBets(ctx context.Context, bets []Bet) error {
	rows := make([]colfile.Row, 0, len(bets))
	for _, b := range bets {
		rows = append(rows, colfile.Row{
			"id":                b.ID,
			"owner_id":          b.OwnerID,
			"subject":           b.Subject,
			"esito":             b.Outcome,
			"sospensione_json":  encodeProbation(b.Probation),
			"invite_code":       b.InviteCode,
			"participants_json": encodeParticipants(b.Participants),
			"created_at":        b.CreatedAt,
			"terminated_at":     b.TerminatedAt,
			"realized":          b.Realized,
		})
	}
	return t.writeRows(ctx, TableBets, betsSchema, rows)
}

// buffers antigos podem não carregar todas as colunas; valor ausente vira zero
func str(v any) string {
	s, _ := v.(string)
	return s
}

func i32(v any) int32 {
	n, _ := v.(int32)
	return n
}

func boolean(v any) bool {
	b, _ := v.(bool)
	return b
}
