package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/IlyasAtabaev731/barter-market/internal/domain/models"
	"github.com/IlyasAtabaev731/barter-market/internal/storage"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

type Storage struct {
	db *sql.DB
}

func New(dbUrl string) (*Storage, error) {
	const op = "storage.postgres.New"

	db, err := sql.Open("postgres", dbUrl)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db}, nil
}

// NewWithDB wraps an already opened handle.
func NewWithDB(db *sql.DB) *Storage {
	return &Storage{db: db}
}

func (s *Storage) Stop(ctx context.Context) error {
	return s.db.Close()
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// validID reports whether id can be a key in this backend. Anything else
// cannot match a row and is treated as absent.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func validIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if validID(id) {
			out = append(out, id)
		}
	}
	return out
}

type scanner interface {
	Scan(dest ...any) error
}

const userColumns = "id, username, password_hash, bio, pic, friends, items, created_at"

func scanUser(row scanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Bio, &u.Pic,
		pq.Array(&u.Friends), pq.Array(&u.Items), &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Storage) SaveUser(ctx context.Context, user *models.User) (string, error) {
	const op = "storage.postgres.SaveUser"

	stmt, err := s.db.PrepareContext(ctx, "INSERT INTO users ("+userColumns+") VALUES($1, $2, $3, $4, $5, $6, $7, $8)")
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	id := uuid.NewString()
	_, err = stmt.ExecContext(ctx, id, user.Username, user.PasswordHash, user.Bio, user.Pic,
		pq.Array(validIDs(user.Friends)), pq.Array(validIDs(user.Items)), user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return "", fmt.Errorf("%s: %w", op, storage.ErrUserExists)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (s *Storage) UserByName(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.postgres.UserByName"

	stmt, err := s.db.PrepareContext(ctx, "SELECT "+userColumns+" FROM users WHERE username = $1")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	user, err := scanUser(stmt.QueryRowContext(ctx, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (s *Storage) UserByID(ctx context.Context, id string) (*models.User, error) {
	const op = "storage.postgres.UserByID"

	if !validID(id) {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	stmt, err := s.db.PrepareContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	user, err := scanUser(stmt.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (s *Storage) UsersByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	const op = "storage.postgres.UsersByIDs"

	ids = validIDs(ids)
	if len(ids) == 0 {
		return []models.User{}, nil
	}

	rows, err := s.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ANY($1) ORDER BY username", pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	users := make([]models.User, 0, len(ids))
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return users, nil
}

func (s *Storage) UpdateProfile(ctx context.Context, id, bio, pic string) error {
	const op = "storage.postgres.UpdateProfile"

	if !validID(id) {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	res, err := s.db.ExecContext(ctx, "UPDATE users SET bio = $1, pic = $2 WHERE id = $3", bio, pic, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return expectOne(op, res)
}

// AddFriend appends friendID unless it is already present, so the array
// behaves as a set.
func (s *Storage) AddFriend(ctx context.Context, userID, friendID string) error {
	const op = "storage.postgres.AddFriend"

	if !validID(userID) || !validID(friendID) {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	res, err := s.db.ExecContext(ctx, `UPDATE users
		SET friends = CASE WHEN $2::uuid = ANY(friends) THEN friends ELSE array_append(friends, $2::uuid) END
		WHERE id = $1`, userID, friendID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return expectOne(op, res)
}

func expectOne(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return nil
}
