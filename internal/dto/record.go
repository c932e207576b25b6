package dto

import "gorm.io/datatypes"

// CreateEntityRequest creates a new entity at version 1
type CreateEntityRequest struct {
	Name        string         `json:"name" binding:"required,max=255"`
	Description *string        `json:"description"`
	EntityType  string         `json:"entity_type" binding:"required,max=64"`
	Data        datatypes.JSON `json:"data" binding:"required"`
}

// CreateRelationshipRequest links two existing entities
type CreateRelationshipRequest struct {
	Name             string         `json:"name" binding:"required,max=255"`
	Description      *string        `json:"description"`
	SourceEntityID   string         `json:"source_entity_id" binding:"required,uuid"`
	TargetEntityID   string         `json:"target_entity_id" binding:"required,uuid"`
	RelationshipType string         `json:"relationship_type" binding:"required,max=64"`
	Data             datatypes.JSON `json:"data" binding:"required"`
}

// CreateModelRequest creates a new model artifact
type CreateModelRequest struct {
	Name        string         `json:"name" binding:"required,max=255"`
	Description *string        `json:"description"`
	DiagramType string         `json:"diagram_type" binding:"required,max=64"`
	Data        datatypes.JSON `json:"data" binding:"required"`
}

// UpdateRecordRequest writes a new version. BaseVersion is the version
// the caller read; a mismatch with the header is a conflict.
type UpdateRecordRequest struct {
	BaseVersion   int            `json:"base_version" binding:"required,gte=1"`
	Name          string         `json:"name" binding:"required,max=255"`
	Description   *string        `json:"description"`
	Data          datatypes.JSON `json:"data" binding:"required"`
	ChangeSummary *string        `json:"change_summary"`
}

// RollbackRequest restores a prior version's content as a new version
type RollbackRequest struct {
	BaseVersion   int     `json:"base_version" binding:"required,gte=1"`
	TargetVersion int     `json:"target_version" binding:"required,gte=1"`
	ChangeSummary *string `json:"change_summary"`
}

// DeleteRecordRequest soft-deletes a record
type DeleteRecordRequest struct {
	BaseVersion int `json:"base_version" binding:"required,gte=1"`
}

// ListRecordsQuery filters a record listing
type ListRecordsQuery struct {
	Type           string `form:"type" binding:"omitempty,max=64"`
	IncludeDeleted bool   `form:"include_deleted"`
	Page           int    `form:"page,default=1" binding:"omitempty,gte=1"`
	PageSize       int    `form:"page_size,default=20" binding:"omitempty,gte=1,lte=100"`
}
