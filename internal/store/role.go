package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ahmadmdabit/MeetingSystem-sub001/types"
)

// RoleRepository handles the fixed role catalog and role assignments.
type RoleRepository struct {
	db *sql.DB
}

func NewRoleRepository(db *sql.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// Ensure inserts any missing roles from the catalog. Idempotent, safe to run
// at every startup.
func (r *RoleRepository) Ensure(ctx context.Context, names ...string) error {
	const query = `INSERT INTO roles (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`
	for _, name := range names {
		if _, err := r.db.ExecContext(ctx, query, name); err != nil {
			return err
		}
	}
	return nil
}

// GetByName returns the role with the given unique name.
func (r *RoleRepository) GetByName(ctx context.Context, name string) (types.Role, error) {
	const query = `SELECT id, name FROM roles WHERE name = $1`
	var role types.Role
	err := r.db.QueryRowContext(ctx, query, name).Scan(&role.ID, &role.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Role{}, ErrNotFound
		}
		return types.Role{}, err
	}
	return role, nil
}

// Assign grants the named role to the user. Granting an already-held role is
// a no-op.
func (r *RoleRepository) Assign(ctx context.Context, userID int64, roleName string) error {
	role, err := r.GetByName(ctx, roleName)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO user_roles (user_id, role_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, role_id) DO NOTHING`
	_, err = r.db.ExecContext(ctx, query, userID, role.ID)
	return err
}
