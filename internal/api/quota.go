// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package api

import (
	"context"
	"sync"
)

// quotaLocks serializes the quota check and generation of concurrent
// requests for the same user. The engine's completion event decrements the
// stored count before GenerateRecommendations returns, so a request that
// acquires the lock after another one finished reads the decremented count.
type quotaLocks struct {
	mu    sync.Mutex
	users map[string]*quotaLock
}

type quotaLock struct {
	sem  chan struct{}
	refs int
}

func newQuotaLocks() *quotaLocks {
	return &quotaLocks{users: make(map[string]*quotaLock)}
}

// lock blocks until username's lock is held or ctx is done.
func (q *quotaLocks) lock(ctx context.Context, username string) (func(), error) {
	q.mu.Lock()
	l, ok := q.users[username]
	if !ok {
		l = &quotaLock{sem: make(chan struct{}, 1)}
		q.users[username] = l
	}
	l.refs++
	q.mu.Unlock()

	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		q.release(username, l)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.sem
			q.release(username, l)
		})
	}, nil
}

func (q *quotaLocks) release(username string, l *quotaLock) {
	q.mu.Lock()
	defer q.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(q.users, username)
	}
}

// held reports how many users currently have a lock entry.
func (q *quotaLocks) held() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.users)
}
