package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/trexoil/edenlivingweb-sub000/internal/model"
)

// DepartmentRepo provides data access to the departments table.
// Departments are near-static reference data; the consumer side of the
// notification queue resolves notify targets through this repo.
type DepartmentRepo struct {
	db *sql.DB
}

// NewDepartmentRepo returns a DepartmentRepo bound to the provided database.
func NewDepartmentRepo(db *sql.DB) *DepartmentRepo { return &DepartmentRepo{db: db} }

// GetByName fetches a department by its unique name.
func (r *DepartmentRepo) GetByName(ctx context.Context, name string) (*model.Department, error) {
	var d model.Department
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, notify_email FROM departments WHERE name = ?`, name).
		Scan(&d.ID, &d.Name, &d.NotifyEmail)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// List returns all departments ordered by name.
func (r *DepartmentRepo) List(ctx context.Context) ([]model.Department, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, notify_email FROM departments ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Department
	for rows.Next() {
		var d model.Department
		if err := rows.Scan(&d.ID, &d.Name, &d.NotifyEmail); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
