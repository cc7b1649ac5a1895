// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package userstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/songrec/internal/config"
	"github.com/tomtom215/songrec/internal/models"
	"github.com/tomtom215/songrec/internal/validation"
)

// MaxRecentlySearched bounds the recently searched list; older entries are dropped.
const MaxRecentlySearched = 50

var (
	// ErrUserNotFound is returned when no user has the given username.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists is returned when creating a username that is taken.
	ErrUserExists = errors.New("user already exists")

	// ErrInvalidUsername is returned for usernames outside 3-30 letters, digits and underscores.
	ErrInvalidUsername = errors.New("invalid username")
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	username          VARCHAR PRIMARY KEY,
	email             VARCHAR,
	count             INTEGER NOT NULL DEFAULT 10,
	created_at        TIMESTAMP NOT NULL,
	last_login        TIMESTAMP,
	loved_it          VARCHAR NOT NULL DEFAULT '[]',
	like_it           VARCHAR NOT NULL DEFAULT '[]',
	okay              VARCHAR NOT NULL DEFAULT '[]',
	hate_it           VARCHAR NOT NULL DEFAULT '[]',
	recently_searched VARCHAR NOT NULL DEFAULT '[]'
)`

const selectColumns = `username, email, count, created_at, last_login,
	loved_it, like_it, okay, hate_it, recently_searched`

// Store is a DuckDB-backed user store. It is safe for concurrent use.
type Store struct {
	conn   *sql.DB
	mu     sync.Mutex // serialises writes
	now    func() time.Time
	logger zerolog.Logger
}

// Open opens (creating if needed) the user database described by cfg.
// An empty path or ":memory:" opens an in-memory database.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func Open(ctx context.Context, cfg *config.DatabaseConfig, logger zerolog.Logger) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
	}

	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	connStr := fmt.Sprintf("%s?threads=%d&autoinstall_known_extensions=false&autoload_known_extensions=false", path, threads)
	if cfg.MaxMemory != "" {
		connStr += "&max_memory=" + cfg.MaxMemory
	}

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{
		conn:   conn,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger.With().Str("component", "userstore").Logger(),
	}
	if _, err := conn.ExecContext(ctx, schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s.logger.Info().Str("path", path).Msg("User store opened")
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// CreateUser creates a user with the default quota and empty preference lists.
func (s *Store) CreateUser(ctx context.Context, username, email string) (*models.User, error) {
	username = validation.SanitizeString(username)
	if !validation.IsUsername(username) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidUsername, username)
	}
	user := &models.User{
		Username:         username,
		Email:            validation.SanitizeString(email),
		Count:            models.DefaultRecommendationQuota,
		LovedIt:          []string{},
		LikeIt:           []string{},
		Okay:             []string{},
		HateIt:           []string{},
		RecentlySearched: []string{},
		CreatedAt:        s.now().Truncate(time.Microsecond),
	}
	if err := validation.ValidateStruct(user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.get(ctx, username); err == nil {
		return nil, fmt.Errorf("%w: %q", ErrUserExists, username)
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	var emailArg any
	if user.Email != "" {
		emailArg = user.Email
	}
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO users (username, email, count, created_at) VALUES (?, ?, ?, ?)`,
		user.Username, emailArg, user.Count, user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info().Str("username", username).Msg("User created")
	return user, nil
}

// GetUser returns the user with the given username.
func (s *Store) GetUser(ctx context.Context, username string) (*models.User, error) {
	return s.get(ctx, username)
}

// ListUsers returns every user ordered by username.
func (s *Store) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT `+selectColumns+` FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// UpdatePreferences replaces the lists that are non-nil in upd and returns the updated user.
func (s *Store) UpdatePreferences(ctx context.Context, username string, upd models.PreferenceUpdate) (*models.User, error) {
	if err := validation.ValidateStruct(&upd); err != nil {
		return nil, fmt.Errorf("update preferences: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.get(ctx, username)
	if err != nil {
		return nil, err
	}
	for _, pair := range []struct {
		src []string
		dst *[]string
	}{
		{upd.LovedIt, &user.LovedIt},
		{upd.LikeIt, &user.LikeIt},
		{upd.Okay, &user.Okay},
		{upd.HateIt, &user.HateIt},
		{upd.RecentlySearched, &user.RecentlySearched},
	} {
		if pair.src != nil {
			*pair.dst = append([]string{}, pair.src...)
		}
	}
	if len(user.RecentlySearched) > MaxRecentlySearched {
		user.RecentlySearched = user.RecentlySearched[len(user.RecentlySearched)-MaxRecentlySearched:]
	}

	if err := s.writeLists(ctx, user); err != nil {
		return nil, fmt.Errorf("update preferences: %w", err)
	}
	return user, nil
}

// AddRecentlySearched appends uri to the user's recently searched list,
// moving it to the end when already present.
func (s *Store) AddRecentlySearched(ctx context.Context, username, uri string) error {
	if !validation.IsTrackURI(uri) {
		return fmt.Errorf("add recently searched: invalid track uri %q", uri)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.get(ctx, username)
	if err != nil {
		return err
	}
	list := make([]string, 0, len(user.RecentlySearched)+1)
	for _, u := range user.RecentlySearched {
		if u != uri {
			list = append(list, u)
		}
	}
	list = append(list, uri)
	if len(list) > MaxRecentlySearched {
		list = list[len(list)-MaxRecentlySearched:]
	}
	user.RecentlySearched = list

	if err := s.writeLists(ctx, user); err != nil {
		return fmt.Errorf("add recently searched: %w", err)
	}
	return nil
}

// DecrementCount uses one unit of the user's quota. It reports false, without
// error, when the quota is already exhausted.
func (s *Store) DecrementCount(ctx context.Context, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.conn.ExecContext(ctx,
		`UPDATE users SET count = count - 1 WHERE username = ? AND count > 0`, username)
	if err != nil {
		return false, fmt.Errorf("decrement count: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("decrement count: %w", err)
	}
	if n > 0 {
		return true, nil
	}

	// distinguish exhausted quota from unknown user
	if _, err := s.get(ctx, username); err != nil {
		return false, err
	}
	return false, nil
}

// RecordLogin stamps the user's last login time.
func (s *Store) RecordLogin(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.conn.ExecContext(ctx,
		`UPDATE users SET last_login = ? WHERE username = ?`, s.now().Truncate(time.Microsecond), username)
	if err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %q", ErrUserNotFound, username)
	}
	return nil
}

func (s *Store) get(ctx context.Context, username string) (*models.User, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM users WHERE username = ?`, username)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrUserNotFound, username)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *Store) writeLists(ctx context.Context, u *models.User) error {
	lists := make([]any, 0, 6)
	for _, l := range [][]string{u.LovedIt, u.LikeIt, u.Okay, u.HateIt, u.RecentlySearched} {
		data, err := encodeList(l)
		if err != nil {
			return err
		}
		lists = append(lists, data)
	}
	lists = append(lists, u.Username)

	_, err := s.conn.ExecContext(ctx, `UPDATE users SET
		loved_it = ?, like_it = ?, okay = ?, hate_it = ?, recently_searched = ?
		WHERE username = ?`, lists...)
	return err
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(sc scanner) (*models.User, error) {
	var u models.User
	var email sql.NullString
	var lastLogin sql.NullTime
	var loved, liked, okay, hated, searched string
	if err := sc.Scan(&u.Username, &email, &u.Count, &u.CreatedAt, &lastLogin,
		&loved, &liked, &okay, &hated, &searched); err != nil {
		return nil, err
	}
	u.Email = email.String
	if lastLogin.Valid {
		u.LastLogin = lastLogin.Time
	}
	u.LovedIt = decodeList(loved)
	u.LikeIt = decodeList(liked)
	u.Okay = decodeList(okay)
	u.HateIt = decodeList(hated)
	u.RecentlySearched = decodeList(searched)
	return &u, nil
}

func encodeList(l []string) (string, error) {
	if l == nil {
		l = []string{}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return "", fmt.Errorf("encode list: %w", err)
	}
	return string(data), nil
}

// decodeList tolerates malformed stored values by returning an empty list.
func decodeList(s string) []string {
	var l []string
	if err := json.Unmarshal([]byte(s), &l); err != nil || l == nil {
		return []string{}
	}
	return l
}
