// Copyright (c) 2026 AppForge. All rights reserved.
// Author: tran.vu.dev@gmail.com

package project

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tranvu/appforge/internal/platform/middleware"
	requestutil "github.com/tranvu/appforge/internal/platform/request"
	"github.com/tranvu/appforge/internal/platform/respond"
	"github.com/tranvu/appforge/internal/platform/sec"
	"github.com/tranvu/appforge/internal/platform/validate"
	"github.com/tranvu/appforge/pkg/pagination"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the project endpoints. All routes require a
// signed-in user; mutation additionally requires ownership (admins pass)
// and creation requires a verified email.
func (handler *Handler) RegisterRoutes(router chi.Router) {
	router.Use(middleware.RequireAuth())

	router.Get("/", handler.listProjects)
	router.Get("/{id}", handler.getProject)

	router.With(middleware.RequireVerified()).Post("/", handler.createProject)

	ownerOnly := middleware.RequireOwner("id", handler.service.OwnerOf)
	router.With(ownerOnly).Patch("/{id}", handler.updateProject)
	router.With(ownerOnly).Delete("/{id}", handler.deleteProject)
}

type projectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (handler *Handler) listProjects(writer http.ResponseWriter, request *http.Request) {
	paginationParams := pagination.FromRequest(request)

	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Members see their own projects; admins may list everything.
	filter := Filter{
		OwnerID: claims.UserID,
		Query:   request.URL.Query().Get("q"),
	}
	if request.URL.Query().Get("all") == "true" && claims.Role.AtLeast(sec.RoleAdmin) {
		filter.OwnerID = ""
	}

	projects, total, err := handler.service.ListProjects(request.Context(), filter, paginationParams.Limit, paginationParams.Offset())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, projects, pagination.NewMeta(paginationParams.Page, paginationParams.Limit, total))
}

func (handler *Handler) getProject(writer http.ResponseWriter, request *http.Request) {
	projectID := requestutil.Param(request, "id")

	project, err := handler.service.GetProject(request.Context(), projectID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, project)
}

func (handler *Handler) createProject(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input projectRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	v := &validate.Validator{}
	v.Required(FieldName, input.Name).
		MaxLen(FieldName, input.Name, MaxNameLength).
		MaxLen(FieldDescription, input.Description, MaxDescriptionLength)

	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	project, err := handler.service.CreateProject(request.Context(), CreateInput{
		OwnerID:     claims.UserID,
		Name:        input.Name,
		Description: input.Description,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, project)
}

func (handler *Handler) updateProject(writer http.ResponseWriter, request *http.Request) {
	projectID := requestutil.Param(request, "id")

	var input projectRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	v := &validate.Validator{}
	v.MaxLen(FieldName, input.Name, MaxNameLength).
		MaxLen(FieldDescription, input.Description, MaxDescriptionLength)

	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	project, err := handler.service.UpdateProject(request.Context(), projectID, UpdateInput{
		Name:        input.Name,
		Description: input.Description,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, project)
}

func (handler *Handler) deleteProject(writer http.ResponseWriter, request *http.Request) {
	projectID := requestutil.Param(request, "id")

	if err := handler.service.DeleteProject(request.Context(), projectID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}
