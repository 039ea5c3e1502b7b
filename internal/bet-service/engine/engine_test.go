package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fantadebito/fantadebito/internal/bet-service/apperr"
	"github.com/fantadebito/fantadebito/internal/bet-service/repo"
	"github.com/fantadebito/fantadebito/internal/shared/objstore"
	"github.com/fantadebito/fantadebito/pkg/contracts/events"
)

// fakePublisher grava os eventos emitidos para inspeção.
type fakePublisher struct {
	created    []events.BetCreated
	terminated []events.BetTerminated
	deleted    []events.BetDeleted
	fail       error
}

func (f *fakePublisher) BetCreated(_ context.Context, e events.BetCreated) error {
	f.created = append(f.created, e)
	return f.fail
}

func (f *fakePublisher) BetTerminated(_ context.Context, e events.BetTerminated) error {
	f.terminated = append(f.terminated, e)
	return f.fail
}

func (f *fakePublisher) BetDeleted(_ context.Context, e events.BetDeleted) error {
	f.deleted = append(f.deleted, e)
	return f.fail
}

// recordingStore anota a ordem dos Puts para verificar users-antes-de-bets.
type recordingStore struct {
	*objstore.Mem
	puts []string
}

func (r *recordingStore) Put(ctx context.Context, key string, data []byte) error {
	r.puts = append(r.puts, key)
	return r.Mem.Put(ctx, key, data)
}

type fixture struct {
	eng    *Engine
	tables *repo.Tables
	store  *recordingStore
	publ   *fakePublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := &recordingStore{Mem: objstore.NewMem()}
	tables := repo.NewTables(store, "", zap.NewNop())
	publ := &fakePublisher{}
	eng := New(tables, publ, zap.NewNop())
	eng.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	eng.newID = func() string { return "bet-1" }
	eng.newInvite = func() string { return "ABC234" }
	return &fixture{eng: eng, tables: tables, store: store, publ: publ}
}

func (f *fixture) seedUsers(t *testing.T, users ...repo.User) {
	t.Helper()
	require.NoError(t, f.tables.WriteUsers(context.Background(), users))
}

func assertKind(t *testing.T, err error, want apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	kind, ok := apperr.KindOf(err)
	require.True(t, ok, "erro sem kind: %v", err)
	assert.Equal(t, want, kind)
}

func TestCreateDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bet, err := f.eng.Create(ctx, "owner", "passa fisica 2", "", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "bet-1", bet.ID)
	assert.Equal(t, repo.OutcomeAdmission, bet.Outcome)
	assert.Equal(t, "ABC234", bet.InviteCode)
	assert.Equal(t, "2025-03-01T12:00:00Z", bet.CreatedAt)
	require.Len(t, bet.Participants, 1)
	assert.Equal(t, "owner", bet.Participants[0].UserID)
	assert.Equal(t, repo.StanceFor, bet.Participants[0].Stance)
	assert.True(t, bet.Open())

	// persistida de verdade
	saved, found, err := f.tables.ReadBets(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	require.Len(t, saved, 1)

	require.Len(t, f.publ.created, 1)
	assert.Equal(t, "bet-1", f.publ.created[0].BetID)
	assert.Equal(t, repo.StanceFor, f.publ.created[0].Stance)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.eng.Create(ctx, "", "materia", "", "", nil)
	assertKind(t, err, apperr.KindValidation)

	_, err = f.eng.Create(ctx, "owner", "", "", "", nil)
	assertKind(t, err, apperr.KindValidation)

	_, err = f.eng.Create(ctx, "owner", "materia", "bogus", "", nil)
	assertKind(t, err, apperr.KindValidation)

	// probation exige o detalhamento matéria/nota
	_, err = f.eng.Create(ctx, "owner", "materia", repo.OutcomeProbation, "", nil)
	assertKind(t, err, apperr.KindValidation)

	bet, err := f.eng.Create(ctx, "owner", "materia", repo.OutcomeProbation, "against",
		[]repo.ProbationItem{{Subject: "analisi", Grade: 4.5}})
	require.NoError(t, err)
	assert.Equal(t, repo.StanceAgainst, bet.Participants[0].Stance)
	require.Len(t, bet.Probation, 1)
}

func TestCreateDropsProbationDetailOutsideProbation(t *testing.T) {
	f := newFixture(t)
	bet, err := f.eng.Create(context.Background(), "owner", "materia", repo.OutcomeAdmission, "",
		[]repo.ProbationItem{{Subject: "analisi", Grade: 4}})
	require.NoError(t, err)
	assert.Empty(t, bet.Probation)
}

func TestJoinUpsertsStance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.eng.Create(ctx, "owner", "materia", "", "", nil)
	require.NoError(t, err)

	bet, err := f.eng.Join(ctx, "bet-1", "u2", "against")
	require.NoError(t, err)
	require.Len(t, bet.Participants, 2)
	assert.Equal(t, repo.StanceAgainst, bet.Participants[1].Stance)

	// repetir troca o lado, não duplica
	bet, err = f.eng.Join(ctx, "bet-1", "u2", "for")
	require.NoError(t, err)
	require.Len(t, bet.Participants, 2)
	assert.Equal(t, repo.StanceFor, bet.Participants[1].Stance)

	// stance inválido cai em "for"
	bet, err = f.eng.Join(ctx, "bet-1", "u3", "whatever")
	require.NoError(t, err)
	assert.Equal(t, repo.StanceFor, bet.Participants[2].Stance)
}

func TestJoinErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.eng.Join(ctx, "bet-1", "u2", "for")
	assertKind(t, err, apperr.KindNotFound)

	_, err = f.eng.Create(ctx, "owner", "materia", "", "", nil)
	require.NoError(t, err)
	_, err = f.eng.Join(ctx, "ghost", "u2", "for")
	assertKind(t, err, apperr.KindNotFound)

	f.seedUsers(t, repo.User{ID: "owner", Username: "o"})
	_, err = f.eng.Terminate(ctx, "owner", "bet-1", true)
	require.NoError(t, err)
	_, err = f.eng.Join(ctx, "bet-1", "u2", "for")
	assertKind(t, err, apperr.KindConflict)
}

func TestTerminateRealizedSettlement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUsers(t,
		repo.User{ID: "owner", Username: "o"},
		repo.User{ID: "u2", Username: "b"},
		repo.User{ID: "u3", Username: "c", Wins: 2, Losses: 1},
	)
	_, err := f.eng.Create(ctx, "owner", "materia", "", "for", nil)
	require.NoError(t, err)
	_, err = f.eng.Join(ctx, "bet-1", "u2", "against")
	require.NoError(t, err)
	_, err = f.eng.Join(ctx, "bet-1", "u3", "for")
	require.NoError(t, err)

	st, err := f.eng.Terminate(ctx, "owner", "bet-1", true)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"owner", "u3"}, st.Winners)
	assert.ElementsMatch(t, []string{"u2"}, st.Losers)
	assert.True(t, st.Realized)

	all, _, err := f.tables.ReadUsers(ctx)
	require.NoError(t, err)
	byID := map[string]repo.User{}
	for _, u := range all {
		byID[u.ID] = u
	}
	assert.Equal(t, int32(1), byID["owner"].Wins)
	assert.Equal(t, int32(1), byID["u2"].Losses)
	assert.Equal(t, int32(3), byID["u3"].Wins)

	bets, _, err := f.tables.ReadBets(ctx)
	require.NoError(t, err)
	assert.Equal(t, "true", bets[0].Realized)
	assert.NotEmpty(t, bets[0].TerminatedAt)

	require.Len(t, f.publ.terminated, 1)
	assert.ElementsMatch(t, []string{"owner", "u3"}, f.publ.terminated[0].Winners)
}

func TestTerminateNotRealizedInvertsPartition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUsers(t,
		repo.User{ID: "owner", Username: "o"},
		repo.User{ID: "u2", Username: "b"},
	)
	_, err := f.eng.Create(ctx, "owner", "materia", "", "for", nil)
	require.NoError(t, err)
	_, err = f.eng.Join(ctx, "bet-1", "u2", "against")
	require.NoError(t, err)

	st, err := f.eng.Terminate(ctx, "owner", "bet-1", false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u2"}, st.Winners)
	assert.ElementsMatch(t, []string{"owner"}, st.Losers)
}

func TestTerminateExactlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUsers(t, repo.User{ID: "owner", Username: "o"})
	_, err := f.eng.Create(ctx, "owner", "materia", "", "", nil)
	require.NoError(t, err)

	_, err = f.eng.Terminate(ctx, "owner", "bet-1", true)
	require.NoError(t, err)

	_, err = f.eng.Terminate(ctx, "owner", "bet-1", true)
	assertKind(t, err, apperr.KindConflict)

	// os contadores não foram aplicados duas vezes
	all, _, err := f.tables.ReadUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), all[0].Wins)
}

func TestTerminateAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUsers(t,
		repo.User{ID: "owner", Username: "o"},
		repo.User{ID: "other", Username: "x"},
		repo.User{ID: "root", Username: "r", IsAdmin: true},
	)
	_, err := f.eng.Create(ctx, "owner", "materia", "", "", nil)
	require.NoError(t, err)

	_, err = f.eng.Terminate(ctx, "other", "bet-1", true)
	assertKind(t, err, apperr.KindForbidden)

	// admin pode, mesmo sem ser dono
	_, err = f.eng.Terminate(ctx, "root", "bet-1", true)
	require.NoError(t, err)
}

func TestTerminateRequiresUsersTable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.eng.Create(ctx, "owner", "materia", "", "", nil)
	require.NoError(t, err)

	_, err = f.eng.Terminate(ctx, "owner", "bet-1", true)
	assertKind(t, err, apperr.KindNotFound)
}

func TestTerminateWritesUsersBeforeBets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUsers(t, repo.User{ID: "owner", Username: "o"})
	_, err := f.eng.Create(ctx, "owner", "materia", "", "", nil)
	require.NoError(t, err)

	f.store.puts = nil
	_, err = f.eng.Terminate(ctx, "owner", "bet-1", true)
	require.NoError(t, err)
	require.Equal(t, []string{"users.bin", "bets.bin"}, f.store.puts)
}

func TestDeleteOpenBet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUsers(t, repo.User{ID: "root", Username: "r", IsAdmin: true})
	_, err := f.eng.Create(ctx, "root", "materia", "", "", nil)
	require.NoError(t, err)

	reversed, err := f.eng.Delete(ctx, "root", "bet-1")
	require.NoError(t, err)
	assert.False(t, reversed)

	bets, found, err := f.tables.ReadBets(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, bets)

	require.Len(t, f.publ.deleted, 1)
	assert.False(t, f.publ.deleted[0].Reversed)
}

func TestDeleteReversesSettlement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUsers(t,
		repo.User{ID: "root", Username: "r", IsAdmin: true},
		repo.User{ID: "u2", Username: "b"},
	)
	_, err := f.eng.Create(ctx, "root", "materia", "", "for", nil)
	require.NoError(t, err)
	_, err = f.eng.Join(ctx, "bet-1", "u2", "against")
	require.NoError(t, err)
	_, err = f.eng.Terminate(ctx, "root", "bet-1", true)
	require.NoError(t, err)

	reversed, err := f.eng.Delete(ctx, "root", "bet-1")
	require.NoError(t, err)
	assert.True(t, reversed)

	all, _, err := f.tables.ReadUsers(ctx)
	require.NoError(t, err)
	for _, u := range all {
		assert.Zero(t, u.Wins, u.ID)
		assert.Zero(t, u.Losses, u.ID)
	}
}

func TestDeleteReversalClampsAtZero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUsers(t,
		repo.User{ID: "root", Username: "r", IsAdmin: true},
		repo.User{ID: "u2", Username: "b"},
	)
	_, err := f.eng.Create(ctx, "root", "materia", "", "for", nil)
	require.NoError(t, err)
	_, err = f.eng.Join(ctx, "bet-1", "u2", "against")
	require.NoError(t, err)
	_, err = f.eng.Terminate(ctx, "root", "bet-1", true)
	require.NoError(t, err)

	// um reset externo zera os contadores entre a liquidação e a remoção
	all, _, err := f.tables.ReadUsers(ctx)
	require.NoError(t, err)
	for i := range all {
		all[i].Wins = 0
		all[i].Losses = 0
	}
	require.NoError(t, f.tables.WriteUsers(ctx, all))

	_, err = f.eng.Delete(ctx, "root", "bet-1")
	require.NoError(t, err)

	all, _, err = f.tables.ReadUsers(ctx)
	require.NoError(t, err)
	for _, u := range all {
		assert.GreaterOrEqual(t, u.Wins, int32(0), u.ID)
		assert.GreaterOrEqual(t, u.Losses, int32(0), u.ID)
	}
}

func TestDeleteRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUsers(t, repo.User{ID: "owner", Username: "o"})
	_, err := f.eng.Create(ctx, "owner", "materia", "", "", nil)
	require.NoError(t, err)

	_, err = f.eng.Delete(ctx, "owner", "bet-1")
	assertKind(t, err, apperr.KindForbidden)

	// sem tabela users ninguém é admin
	f2 := newFixture(t)
	_, err = f2.eng.Create(ctx, "owner", "materia", "", "", nil)
	require.NoError(t, err)
	_, err = f2.eng.Delete(ctx, "owner", "bet-1")
	assertKind(t, err, apperr.KindForbidden)
}

func TestDeleteNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUsers(t, repo.User{ID: "root", Username: "r", IsAdmin: true})

	_, err := f.eng.Delete(ctx, "root", "ghost")
	assertKind(t, err, apperr.KindNotFound)
}

func TestListMissingTableIsEmpty(t *testing.T) {
	f := newFixture(t)
	bets, err := f.eng.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, bets)
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t)
	f.publ.fail = errors.New("broker down")

	bet, err := f.eng.Create(context.Background(), "owner", "materia", "", "", nil)
	require.NoError(t, err)
	assert.NotNil(t, bet)
}
