package session

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PostgresStore keeps sessions in the console_sessions table so they survive
// restarts and are shared between console replicas.
type PostgresStore struct {
	DB  *sql.DB
	Log *zerolog.Logger
}

// NewPostgresStore opens the database and checks the connection.
func NewPostgresStore(connStr string, log *zerolog.Logger) (*PostgresStore, error) {
	if connStr == "" {
		log.Error().Msg("database source is not set")
		return nil, errors.New("database source is not set")
	}

	// Open the database connection
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open database connection")
		return nil, err
	}

	// Check we are actually connected
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = db.PingContext(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Database connection failed during ping")
		db.Close()
		return nil, err
	}

	return &PostgresStore{DB: db, Log: log}, nil
}

func (p *PostgresStore) Close() error {
	if err := p.DB.Close(); err != nil {
		return err
	}
	p.Log.Info().Msg("database connection closed")
	return nil
}

// Migrate brings the session schema up to date.
func (p *PostgresStore) Migrate() error {
	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(p.DB, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (p *PostgresStore) Create(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	_, err = p.DB.ExecContext(ctx, `
		INSERT INTO console_sessions (id, data, expires_at, updated_at)
		VALUES ($1, $2, $3, NOW())`,
		s.ID, string(data), nullTime(s.ExpiresAt))
	if err != nil {
		return fmt.Errorf("error inserting session: %w", err)
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Session, error) {
	row := p.DB.QueryRowContext(ctx, `
		SELECT data FROM console_sessions
		WHERE id = $1 AND (expires_at IS NULL OR expires_at > NOW())`, id)

	var data []byte
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("error retrieving session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

func (p *PostgresStore) Update(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	res, err := p.DB.ExecContext(ctx, `
		UPDATE console_sessions SET data = $2, expires_at = $3, updated_at = NOW()
		WHERE id = $1`,
		s.ID, string(data), nullTime(s.ExpiresAt))
	if err != nil {
		return fmt.Errorf("error updating session: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error updating session: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (p *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := p.DB.ExecContext(ctx, `DELETE FROM console_sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("error deleting session: %w", err)
	}
	return nil
}

// CleanupExpired removes expired sessions and returns how many were deleted.
func (p *PostgresStore) CleanupExpired(ctx context.Context) (int64, error) {
	res, err := p.DB.ExecContext(ctx, `DELETE FROM console_sessions WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("error deleting expired sessions: %w", err)
	}
	return res.RowsAffected()
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
