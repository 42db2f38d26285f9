package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/bookshare/bookshare-go/internal/model"
)

// RoleRepo encapsulates queries against the roles table. The table is
// seeded with User/Admin/SuperAdmin; SuperAdmins may add more.
type RoleRepo struct{ DB *sql.DB }

func NewRoleRepo(db *sql.DB) *RoleRepo { return &RoleRepo{DB: db} }

// IDByName resolves a role name to its id.
func (r *RoleRepo) IDByName(ctx context.Context, name string) (int64, error) {
	var id int64
	err := r.DB.QueryRowContext(ctx, `SELECT id FROM roles WHERE name=?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return id, err
}

// GetByID fetches a role by id.
func (r *RoleRepo) GetByID(ctx context.Context, id int64) (*model.Role, error) {
	var role model.Role
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, name, description FROM roles WHERE id=?`, id).
		Scan(&role.ID, &role.Name, &role.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// List returns all roles ordered by id.
func (r *RoleRepo) List(ctx context.Context) ([]*model.Role, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, name, description FROM roles ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Role
	for rows.Next() {
		var role model.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description); err != nil {
			return nil, err
		}
		out = append(out, &role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts a new role and returns its id.
func (r *RoleRepo) Create(ctx context.Context, role *model.Role) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO roles (name, description) VALUES (?,?)`, role.Name, role.Description)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrConflict
		}
		return 0, err
	}
	return res.LastInsertId()
}

// Update renames a role and replaces its description.
func (r *RoleRepo) Update(ctx context.Context, role *model.Role) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE roles SET name=?, description=? WHERE id=?`,
		role.Name, role.Description, role.ID)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a role. Roles still referenced by users cannot be
// removed; the foreign key rejects the delete and ErrConflict is returned.
func (r *RoleRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM roles WHERE id=?`, id)
	if err != nil {
		return ErrConflict
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
