package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"slices"
	"time"

	"github.com/lib/pq"
	"github.com/notefeed/apiserver/types"
)

// UserRepository handles persistence for users, including the
// denormalized follow list and the notification inbox. Mutations of a
// user's own follows/notifications run under a row lock so concurrent
// requests cannot lose updates.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, username, name, password_hash, avatar_key, follows, notifications, modified_at, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (types.User, error) {
	var user types.User
	var followsJSON, notificationsJSON []byte
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Name,
		&user.PasswordHash,
		&user.AvatarKey,
		&followsJSON,
		&notificationsJSON,
		&user.ModifiedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return types.User{}, err
	}

	_ = json.Unmarshal(followsJSON, &user.Follows)
	_ = json.Unmarshal(notificationsJSON, &user.Notifications)
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE username = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.ModifiedAt = now
	if user.Follows == nil {
		user.Follows = []string{}
	}
	if user.Notifications == nil {
		user.Notifications = []types.Notification{}
	}

	followsJSON, err := json.Marshal(user.Follows)
	if err != nil {
		return types.User{}, err
	}
	notificationsJSON, err := json.Marshal(user.Notifications)
	if err != nil {
		return types.User{}, err
	}

	const query = `
		INSERT INTO users (username, name, password_hash, avatar_key, follows, notifications, modified_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		user.Username,
		user.Name,
		user.PasswordHash,
		user.AvatarKey,
		followsJSON,
		notificationsJSON,
		user.ModifiedAt,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID); err != nil {
		return types.User{}, err
	}
	return user, nil
}

// ListByUsernames fetches users for the given usernames and returns them
// in the order the usernames were supplied, so a follow list renders in
// insertion order. Unknown usernames are skipped.
func (r *UserRepository) ListByUsernames(ctx context.Context, usernames []string) ([]types.User, error) {
	if len(usernames) == 0 {
		return []types.User{}, nil
	}

	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE username = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(usernames))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byUsername := make(map[string]types.User, len(usernames))
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		byUsername[user.Username] = user
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	users := make([]types.User, 0, len(usernames))
	for _, username := range usernames {
		if user, ok := byUsername[username]; ok {
			users = append(users, user)
		}
	}
	return users, nil
}

// ListFollowers scans the directory for every user whose follow list
// contains the given username. This is the reverse lookup the fan-out
// engine snapshots at trigger time; the GIN index on follows keeps the
// containment query off a sequential scan.
func (r *UserRepository) ListFollowers(ctx context.Context, username string) ([]types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE follows @> jsonb_build_array($1::text)`
	rows, err := r.db.QueryContext(ctx, query, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var followers []types.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		followers = append(followers, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return followers, nil
}

func (r *UserRepository) Exists(ctx context.Context, username string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, username).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// AppendFollow adds target to the user's follow list and returns the
// updated list. The duplicate check runs under the row lock, so two
// concurrent adds of the same edge cannot both succeed.
func (r *UserRepository) AppendFollow(ctx context.Context, userID int, target string) ([]string, error) {
	var updated []string
	err := r.withLockedFollows(ctx, userID, func(follows []string) ([]string, error) {
		if slices.Contains(follows, target) {
			return nil, ErrAlreadyFollowing
		}
		updated = append(follows, target)
		return updated, nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RemoveFollow removes exactly one matching entry from the user's follow
// list and returns the updated list.
func (r *UserRepository) RemoveFollow(ctx context.Context, userID int, target string) ([]string, error) {
	var updated []string
	err := r.withLockedFollows(ctx, userID, func(follows []string) ([]string, error) {
		idx := slices.Index(follows, target)
		if idx < 0 {
			return nil, ErrNotFollowing
		}
		updated = append(follows[:idx:idx], follows[idx+1:]...)
		return updated, nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *UserRepository) withLockedFollows(ctx context.Context, userID int, mutate func([]string) ([]string, error)) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const selectQuery = `SELECT follows FROM users WHERE id = $1 FOR UPDATE`
	var followsJSON []byte
	if err := tx.QueryRowContext(ctx, selectQuery, userID).Scan(&followsJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	follows := []string{}
	_ = json.Unmarshal(followsJSON, &follows)

	updated, err := mutate(follows)
	if err != nil {
		return err
	}

	updatedJSON, err := json.Marshal(updated)
	if err != nil {
		return err
	}

	const updateQuery = `UPDATE users SET follows = $1, updated_at = $2 WHERE id = $3`
	if _, err := tx.ExecContext(ctx, updateQuery, updatedJSON, time.Now(), userID); err != nil {
		return err
	}
	return tx.Commit()
}

// AppendNotification appends a snapshot to the follower's inbox, guarded
// by the (eventID, followerID) delivery record. It reports false without
// touching the inbox when this event was already delivered to this
// follower, which makes broker redelivery safe.
func (r *UserRepository) AppendNotification(ctx context.Context, eventID string, followerID int, note types.Notification) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const guardQuery = `
		INSERT INTO notification_deliveries (event_id, follower_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`
	result, err := tx.ExecContext(ctx, guardQuery, eventID, followerID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, tx.Commit()
	}

	const selectQuery = `SELECT notifications FROM users WHERE id = $1 FOR UPDATE`
	var notificationsJSON []byte
	if err := tx.QueryRowContext(ctx, selectQuery, followerID).Scan(&notificationsJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, err
	}

	notifications := []types.Notification{}
	_ = json.Unmarshal(notificationsJSON, &notifications)
	notifications = append(notifications, note)

	updatedJSON, err := json.Marshal(notifications)
	if err != nil {
		return false, err
	}

	const updateQuery = `UPDATE users SET notifications = $1, updated_at = $2 WHERE id = $3`
	if _, err := tx.ExecContext(ctx, updateQuery, updatedJSON, time.Now(), followerID); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// TouchModified advances the user's modified_at, marking a publish.
func (r *UserRepository) TouchModified(ctx context.Context, userID int, at time.Time) error {
	const query = `UPDATE users SET modified_at = $1, updated_at = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, at, userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateAvatarKey records the object-storage key of the user's avatar.
func (r *UserRepository) UpdateAvatarKey(ctx context.Context, userID int, key string) error {
	const query = `UPDATE users SET avatar_key = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, key, time.Now(), userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
