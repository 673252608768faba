// Copyright (c) 2026 AppForge. All rights reserved.
// Author: tran.vu.dev@gmail.com

// Package project implements the tenant-owned project resource.
//
// Projects are the unit of ownership in AppForge: every project belongs to
// exactly one user, and mutating routes are gated on that ownership.
package project

import "time"

// Project is a user-owned workspace.
type Project struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Filter narrows project listings.
type Filter struct {
	OwnerID string
	Query   string
}

const (
	FieldName        = "name"
	FieldDescription = "description"

	MaxNameLength        = 100
	MaxDescriptionLength = 2000
)
