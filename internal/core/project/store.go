// Copyright (c) 2026 AppForge. All rights reserved.
// Author: tran.vu.dev@gmail.com

package project

import "context"

// ProjectRepository defines the data access contract for projects.
type ProjectRepository interface {
	Create(ctx context.Context, project *Project) error
	FindByID(ctx context.Context, id string) (*Project, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Project, int, error)
	Update(ctx context.Context, project *Project) error
	Delete(ctx context.Context, id string) error

	// OwnerOf resolves just the owning user ID, for the ownership guard.
	OwnerOf(ctx context.Context, id string) (string, error)
}
