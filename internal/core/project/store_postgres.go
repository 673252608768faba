// Copyright (c) 2026 AppForge. All rights reserved.
// Author: tran.vu.dev@gmail.com

package project

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tranvu/appforge/internal/platform/apperr"
)

// PostgresProjectRepository implements ProjectRepository using pgx.
type PostgresProjectRepository struct {
	pool *pgxpool.Pool
}

func NewProjectRepository(pool *pgxpool.Pool) *PostgresProjectRepository {
	return &PostgresProjectRepository{pool: pool}
}

func (repository *PostgresProjectRepository) Create(ctx context.Context, project *Project) error {
	const query = `
		INSERT INTO core.project (id, ownerid, name, slug, description, createdat, updatedat)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	now := time.Now()
	if project.CreatedAt.IsZero() {
		project.CreatedAt = now
	}
	project.UpdatedAt = now

	_, err := repository.pool.Exec(ctx, query,
		project.ID,
		project.OwnerID,
		project.Name,
		project.Slug,
		project.Description,
		project.CreatedAt,
		project.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres_project_repo_create_failed: %w", err)
	}
	return nil
}

func (repository *PostgresProjectRepository) FindByID(ctx context.Context, id string) (*Project, error) {
	const query = `
		SELECT id, ownerid, name, slug, description, createdat, updatedat
		FROM core.project
		WHERE id = $1`

	project := &Project{}
	err := repository.pool.QueryRow(ctx, query, id).Scan(
		&project.ID,
		&project.OwnerID,
		&project.Name,
		&project.Slug,
		&project.Description,
		&project.CreatedAt,
		&project.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Project not found")
		}
		return nil, fmt.Errorf("postgres_project_repo_find_failed: %w", err)
	}
	return project, nil
}

func (repository *PostgresProjectRepository) List(ctx context.Context, filter Filter, limit, offset int) ([]*Project, int, error) {
	const query = `
		SELECT id, ownerid, name, slug, description, createdat, updatedat,
		       COUNT(*) OVER() AS total
		FROM core.project
		WHERE ($1 = '' OR ownerid = $1)
		  AND ($2 = '' OR name ILIKE '%' || $2 || '%')
		ORDER BY createdat DESC
		LIMIT $3 OFFSET $4`

	rows, err := repository.pool.Query(ctx, query, filter.OwnerID, filter.Query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_project_repo_list_failed: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	total := 0
	for rows.Next() {
		project := &Project{}
		if err := rows.Scan(
			&project.ID,
			&project.OwnerID,
			&project.Name,
			&project.Slug,
			&project.Description,
			&project.CreatedAt,
			&project.UpdatedAt,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("postgres_project_repo_scan_failed: %w", err)
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("postgres_project_repo_rows_failed: %w", err)
	}

	return projects, total, nil
}

func (repository *PostgresProjectRepository) Update(ctx context.Context, project *Project) error {
	const query = `
		UPDATE core.project
		SET name = $2, slug = $3, description = $4, updatedat = $5
		WHERE id = $1`

	project.UpdatedAt = time.Now()
	_, err := repository.pool.Exec(ctx, query,
		project.ID,
		project.Name,
		project.Slug,
		project.Description,
		project.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres_project_repo_update_failed: %w", err)
	}
	return nil
}

func (repository *PostgresProjectRepository) Delete(ctx context.Context, id string) error {
	const query = "DELETE FROM core.project WHERE id = $1"
	_, err := repository.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("postgres_project_repo_delete_failed: %w", err)
	}
	return nil
}

func (repository *PostgresProjectRepository) OwnerOf(ctx context.Context, id string) (string, error) {
	const query = "SELECT ownerid FROM core.project WHERE id = $1"

	var ownerID string
	err := repository.pool.QueryRow(ctx, query, id).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperr.NotFound("Project not found")
		}
		return "", fmt.Errorf("postgres_project_repo_owner_of_failed: %w", err)
	}
	return ownerID, nil
}
