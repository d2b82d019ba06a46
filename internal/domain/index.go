package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// FieldType is the declared type of a schema field.
type FieldType string

const (
	FieldTypeString FieldType = "string"
	FieldTypeObject FieldType = "object"
	FieldTypeArray  FieldType = "array"
)

// FieldSpec declares validation rules for one schema field.
type FieldSpec struct {
	Type        FieldType `json:"type"`
	Required    bool      `json:"required"`
	Recommended bool      `json:"recommended,omitempty"`
	MinLength   int       `json:"min_length,omitempty"`
	MaxLength   int       `json:"max_length,omitempty"`
	Pattern     string    `json:"pattern,omitempty"`
	Description string    `json:"description,omitempty"`
}

// IndexOrigin distinguishes built-in schemas from user-defined ones.
type IndexOrigin string

const (
	OriginBuiltIn IndexOrigin = "builtin"
	OriginCustom  IndexOrigin = "custom"
)

// IndexKind is a tagged variant identifying where an index definition comes
// from. CustomID and OwnerID are set only for custom indexes.
type IndexKind struct {
	Origin   IndexOrigin `json:"origin"`
	CustomID string      `json:"custom_id,omitempty"`
	OwnerID  string      `json:"owner_id,omitempty"`
}

// BuiltInKind returns the kind for a built-in index.
func BuiltInKind() IndexKind {
	return IndexKind{Origin: OriginBuiltIn}
}

// CustomKind returns the kind for a user-defined index.
func CustomKind(customID, ownerID string) IndexKind {
	return IndexKind{Origin: OriginCustom, CustomID: customID, OwnerID: ownerID}
}

// IndexSchema is the destination schema a record is validated against.
type IndexSchema struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	Kind        IndexKind            `json:"kind"`
	Fields      map[string]FieldSpec `json:"fields"`
}

// FieldSpecMap stores a field-spec mapping as JSON in a text column.
type FieldSpecMap map[string]FieldSpec

// Value implements driver.Valuer for database serialization.
func (m FieldSpecMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for database deserialization.
func (m *FieldSpecMap) Scan(value interface{}) error {
	if value == nil {
		*m = FieldSpecMap{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan FieldSpecMap")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, m)
}

// CustomIndex is a user-defined index definition.
// Slug uniqueness is enforced at the database level.
type CustomIndex struct {
	ID          string       `gorm:"type:text;primaryKey" json:"id"`
	Slug        string       `gorm:"type:text;not null;uniqueIndex:idx_custom_indexes_slug" json:"slug"`
	Name        string       `gorm:"type:text;not null" json:"name"`
	Description string       `gorm:"type:text" json:"description,omitempty"`
	Fields      FieldSpecMap `gorm:"type:text" json:"fields"`
	OwnerID     string       `gorm:"type:text;index:idx_custom_indexes_owner" json:"owner_id,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// TableName returns the database table name for CustomIndex.
func (CustomIndex) TableName() string {
	return "custom_indexes"
}

// Schema converts the stored definition into a validatable IndexSchema.
func (ci *CustomIndex) Schema() *IndexSchema {
	fields := make(map[string]FieldSpec, len(ci.Fields))
	for name, spec := range ci.Fields {
		fields[name] = spec
	}
	return &IndexSchema{
		ID:          ci.Slug,
		Name:        ci.Name,
		Description: ci.Description,
		Kind:        CustomKind(ci.ID, ci.OwnerID),
		Fields:      fields,
	}
}
