package models

import (
	"strings"

	"litebridge/orm"
)

// Sample is the demo record. Every column except the key is nullable.
type Sample struct {
	ID               int64      `gorm:"column:id;primaryKey;autoIncrement:false" json:"id"`
	Description      *string    `json:"description"`
	MyClass          *Customer  `gorm:"type:blob;serializer:jsonblob" json:"my_class,omitempty"`
	MultiUniquePart1 *int64     `json:"multi_unique_part1,omitempty"`
	MultiUniquePart2 *int64     `json:"multi_unique_part2,omitempty"`
	Note             orm.Sealed `json:"note,omitempty"`
}

// TableIndexes declares the Sample indexes. Each name is prefixed with the
// table name, so Sample can back several tables.
func (Sample) TableIndexes() []orm.Index {
	return []orm.Index{
		{Suffix: "_uniqueIndex", Columns: []orm.IndexColumn{orm.Column("id")}, Unique: true},
		{Suffix: "_descendingIndex", Columns: []orm.IndexColumn{orm.DescColumn("description")}},
		{Suffix: "_multiIndex", Columns: []orm.IndexColumn{orm.Column("id"), orm.DescColumn("description")}},
	}
}

// SampleFields are the writable columns of a sample
type SampleFields struct {
	Description      *string   `json:"description"`
	MyClass          *Customer `json:"my_class"`
	MultiUniquePart1 *int64    `json:"multi_unique_part1"`
	MultiUniquePart2 *int64    `json:"multi_unique_part2"`
	Note             string    `json:"note"`
}

// Normalize trims whitespace from input fields
func (f *SampleFields) Normalize() {
	if f.Description != nil {
		d := strings.TrimSpace(*f.Description)
		f.Description = &d
	}
	f.Note = strings.TrimSpace(f.Note)
}

// Sample converts the fields into a record with the given key.
func (f SampleFields) Sample(id int64) Sample {
	return Sample{
		ID:               id,
		Description:      f.Description,
		MyClass:          f.MyClass,
		MultiUniquePart1: f.MultiUniquePart1,
		MultiUniquePart2: f.MultiUniquePart2,
		Note:             orm.Sealed(f.Note),
	}
}

// SampleCreate request payload for creating or replacing a sample
type SampleCreate struct {
	ID int64 `json:"id" binding:"required"`
	SampleFields
}

// Sample converts the payload into a record.
func (s SampleCreate) Sample() Sample {
	return s.SampleFields.Sample(s.ID)
}

// SampleUpdate request payload for a partial update. Only the listed
// columns are written.
type SampleUpdate struct {
	Columns []string     `json:"columns" binding:"required"`
	Values  SampleFields `json:"values"`
}
