package services

import (
	"sync"

	"github.com/google/uuid"
)

// TournamentLocker serializes state transitions per tournament. Every
// operation that reads bracket state and writes a consequence (start,
// report-result with its round-completion check, delete) runs under the
// tournament's lock, so round advancement happens at most once per round.
type TournamentLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewTournamentLocker() *TournamentLocker {
	return &TournamentLocker{locks: make(map[uuid.UUID]*sync.Mutex)}
}

// Lock acquires the tournament's mutex and returns the matching unlock.
func (l *TournamentLocker) Lock(tournamentID uuid.UUID) func() {
	l.mu.Lock()
	lock, ok := l.locks[tournamentID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[tournamentID] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// Forget drops the mutex of a tournament that takes no more state
// transitions (deleted or finished), so the map does not grow without
// bound.
func (l *TournamentLocker) Forget(tournamentID uuid.UUID) {
	l.mu.Lock()
	delete(l.locks, tournamentID)
	l.mu.Unlock()
}
