package model

import (
	"time"

	"gorm.io/datatypes"
)

// Change types recorded on version snapshots
const (
	ChangeCreate   = "create"
	ChangeUpdate   = "update"
	ChangeRollback = "rollback"
	ChangeDelete   = "delete"
)

// RecordMeta is the mutable header shared by every versioned record
// kind. CurrentVersion is the optimistic concurrency token: writers
// present the version they read, and the store rejects stale ones.
type RecordMeta struct {
	ID             string    `gorm:"type:uuid;primaryKey" json:"id"`
	CurrentVersion int       `gorm:"not null;default:1" json:"current_version"`
	IsDeleted      bool      `gorm:"not null;default:false;index" json:"is_deleted"`
	CreatedAt      time.Time `json:"created_at"`
	CreatedBy      string    `gorm:"type:uuid;not null" json:"created_by"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// VersionSnapshot is one immutable version of a record. The three
// version tables share this shape so the store can address them
// generically by table name.
type VersionSnapshot struct {
	RecordID      string         `gorm:"type:uuid;primaryKey;column:record_id" json:"record_id"`
	Version       int            `gorm:"primaryKey;autoIncrement:false" json:"version"`
	Name          string         `gorm:"type:varchar(255);not null" json:"name"`
	Description   *string        `gorm:"type:text" json:"description,omitempty"`
	Data          datatypes.JSON `gorm:"type:jsonb" json:"data"`
	ChangeType    string         `gorm:"type:varchar(16);not null" json:"change_type"`
	ChangeSummary *string        `gorm:"type:text" json:"change_summary,omitempty"`
	RollbackTo    *int           `json:"rollback_to,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	CreatedBy     string         `gorm:"type:uuid;not null" json:"created_by"`
}

// Entity is a record header with its kind-specific classifier.
type Entity struct {
	RecordMeta
	EntityType string `gorm:"type:varchar(64);index;not null" json:"entity_type"`
}

// TableName specifies the table name for Entity model
func (Entity) TableName() string {
	return "entities"
}

// EntityVersion is the version table for entities.
type EntityVersion struct {
	VersionSnapshot
}

// TableName specifies the table name for EntityVersion model
func (EntityVersion) TableName() string {
	return "entity_versions"
}

// Relationship links two entities. Endpoints are fixed at creation;
// only the versioned payload evolves.
type Relationship struct {
	RecordMeta
	SourceEntityID   string `gorm:"type:uuid;index;not null" json:"source_entity_id"`
	TargetEntityID   string `gorm:"type:uuid;index;not null" json:"target_entity_id"`
	RelationshipType string `gorm:"type:varchar(64);index;not null" json:"relationship_type"`
}

// TableName specifies the table name for Relationship model
func (Relationship) TableName() string {
	return "relationships"
}

// RelationshipVersion is the version table for relationships.
type RelationshipVersion struct {
	VersionSnapshot
}

// TableName specifies the table name for RelationshipVersion model
func (RelationshipVersion) TableName() string {
	return "relationship_versions"
}

// ModelDiagram is a stored model artifact (diagram, schema, document).
type ModelDiagram struct {
	RecordMeta
	DiagramType string `gorm:"type:varchar(64);index;not null" json:"diagram_type"`
}

// TableName specifies the table name for ModelDiagram model
func (ModelDiagram) TableName() string {
	return "models"
}

// ModelDiagramVersion is the version table for models.
type ModelDiagramVersion struct {
	VersionSnapshot
}

// TableName specifies the table name for ModelDiagramVersion model
func (ModelDiagramVersion) TableName() string {
	return "model_versions"
}

// RecordView is a read model joining a header with its current (or a
// requested) snapshot. Used for list and detail responses.
type RecordView struct {
	ID             string         `json:"id"`
	CurrentVersion int            `json:"current_version"`
	Version        int            `json:"version"`
	IsDeleted      bool           `json:"is_deleted"`
	Name           string         `json:"name"`
	Description    *string        `json:"description,omitempty"`
	Data           datatypes.JSON `json:"data"`
	ChangeType     string         `json:"change_type"`
	ChangeSummary  *string        `json:"change_summary,omitempty"`
	RollbackTo     *int           `json:"rollback_to,omitempty"`
	TypeLabel      string         `json:"type_label"`
	CreatedAt      time.Time      `json:"created_at"`
	CreatedBy      string         `json:"created_by"`
	UpdatedAt      time.Time      `json:"updated_at"`
}
