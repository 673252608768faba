// Copyright (c) 2026 AppForge. All rights reserved.
// Author: tran.vu.dev@gmail.com

package project

import (
	"context"
	"fmt"

	"github.com/tranvu/appforge/pkg/slug"
	"github.com/tranvu/appforge/pkg/uuid"
)

// Service implements project use cases.
type Service struct {
	projectRepository ProjectRepository
}

func NewService(projectRepo ProjectRepository) *Service {
	return &Service{projectRepository: projectRepo}
}

// CreateInput holds the data required to open a new project.
type CreateInput struct {
	OwnerID     string
	Name        string
	Description string
}

func (service *Service) CreateProject(ctx context.Context, input CreateInput) (*Project, error) {
	project := &Project{
		ID:          uuid.New(),
		OwnerID:     input.OwnerID,
		Name:        input.Name,
		Slug:        slug.From(input.Name),
		Description: input.Description,
	}

	if err := service.projectRepository.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("project_service_create_failed: %w", err)
	}
	return project, nil
}

func (service *Service) GetProject(ctx context.Context, id string) (*Project, error) {
	return service.projectRepository.FindByID(ctx, id)
}

func (service *Service) ListProjects(ctx context.Context, filter Filter, limit, offset int) ([]*Project, int, error) {
	return service.projectRepository.List(ctx, filter, limit, offset)
}

// UpdateInput carries the mutable project fields.
type UpdateInput struct {
	Name        string
	Description string
}

func (service *Service) UpdateProject(ctx context.Context, id string, input UpdateInput) (*Project, error) {
	project, err := service.projectRepository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != "" && input.Name != project.Name {
		project.Name = input.Name
		project.Slug = slug.From(input.Name)
	}
	project.Description = input.Description

	if err := service.projectRepository.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("project_service_update_failed: %w", err)
	}
	return project, nil
}

func (service *Service) DeleteProject(ctx context.Context, id string) error {
	if _, err := service.projectRepository.FindByID(ctx, id); err != nil {
		return err
	}
	return service.projectRepository.Delete(ctx, id)
}

// OwnerOf exposes ownership resolution for the route guard.
func (service *Service) OwnerOf(ctx context.Context, id string) (string, error) {
	return service.projectRepository.OwnerOf(ctx, id)
}
