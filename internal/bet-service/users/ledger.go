package users

import "github.com/fantadebito/fantadebito/internal/bet-service/repo"

// CounterDelta é um ajuste de contadores para um usuário. Deltas negativos
// param no piso zero.
type CounterDelta struct {
	UserID string
	Wins   int32
	Losses int32
}

// FindByID devolve o índice do usuário ou -1.
func FindByID(all []repo.User, id string) int {
	for i := range all {
		if all[i].ID == id {
			return i
		}
	}
	return -1
}

// ApplyDeltas aplica os ajustes em memória e informa se alguma linha mudou.
// Ids que não existem na tabela são ignorados; o chamador decide se isso é
// um problema. wins/losses nunca ficam negativos.
func ApplyDeltas(all []repo.User, deltas []CounterDelta) bool {
	changed := false
	for _, d := range deltas {
		i := FindByID(all, d.UserID)
		if i < 0 {
			continue
		}
		w := clampZero(all[i].Wins + d.Wins)
		l := clampZero(all[i].Losses + d.Losses)
		if w != all[i].Wins || l != all[i].Losses {
			all[i].Wins = w
			all[i].Losses = l
			changed = true
		}
	}
	return changed
}

func clampZero(n int32) int32 {
	if n < 0 {
		return 0
	}
	return n
}
