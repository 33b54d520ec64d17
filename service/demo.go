package service

import (
	"context"
	"fmt"

	"litebridge/models"
	"litebridge/orm"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PausableTableName is the table the demo fills through a pausable
// transaction.
const PausableTableName = "sampleTable"

// DemoReport summarises a demo run.
type DemoReport struct {
	Inserted      int             `json:"inserted"`
	AfterIgnore   int             `json:"after_insert_or_ignore"`
	AfterUpdate   *models.Sample  `json:"after_update"`
	FirstPage     []models.Sample `json:"first_page"`
	AfterDelete   int             `json:"after_delete"`
	PausableRows  int             `json:"pausable_rows"`
	Corrupted     bool            `json:"corrupted"`
	SampleTable   string          `json:"sample_table"`
	PausableTable string          `json:"pausable_table"`
}

// RunDemo walks through every Manager operation on the Sample model:
// create, insert or replace, insert or ignore, update, ordered and windowed
// selects and deletes, then fills a second table through a pausable
// transaction. rows is the number of samples inserted.
func RunDemo(ctx context.Context, m *Manager, rows int) (DemoReport, error) {
	if rows < 4 {
		rows = 4
	}
	report := DemoReport{SampleTable: orm.DefaultTableName[models.Sample](), PausableTable: PausableTableName}

	CreateTable[models.Sample](ctx, m)
	CreateTable[models.Sample](ctx, m, InTable(PausableTableName))

	samples := make([]models.Sample, 0, rows)
	for i := 1; i <= rows; i++ {
		desc := fmt.Sprintf("sample %d", i)
		part := int64(i % 3)
		samples = append(samples, models.Sample{
			ID:               int64(i),
			Description:      &desc,
			MyClass:          &models.Customer{Variable1: fmt.Sprintf("v1-%d", i), Variable2: fmt.Sprintf("v2-%d", i)},
			MultiUniquePart1: &part,
		})
	}
	InsertOrReplace(ctx, m, samples)
	report.Inserted = len(GetObjects[models.Sample](ctx, m, orm.Query{}))
	log.Info().Int("rows", report.Inserted).Msg("demo: inserted samples")

	// Conflicting IDs are skipped, only the new one lands.
	ignored := "ignored"
	fresh := "fresh"
	InsertOrIgnore(ctx, m, []models.Sample{
		{ID: 1, Description: &ignored},
		{ID: int64(rows + 1), Description: &fresh},
	})
	report.AfterIgnore = len(GetObjects[models.Sample](ctx, m, orm.Query{}))

	updated := "updated"
	Update(ctx, m, []string{"description"}, models.Sample{Description: &updated}, orm.Query{Where: orm.Where("id = ?", 2)})
	if s, ok := GetObject[models.Sample](ctx, m, orm.Query{Where: orm.Where("id = ?", 2)}); ok {
		report.AfterUpdate = &s
	}

	report.FirstPage = GetObjects[models.Sample](ctx, m, orm.Query{
		OrderBy: []orm.OrderBy{orm.Desc("id")},
		Limit:   orm.Limit(3),
	})

	// Drop the two highest IDs.
	Delete[models.Sample](ctx, m, orm.Query{OrderBy: []orm.OrderBy{orm.Desc("id")}, Limit: orm.Limit(2)})
	report.AfterDelete = len(GetObjects[models.Sample](ctx, m, orm.Query{}))

	next := int64(1)
	total := int64(rows * 10)
	err := m.Database().RunPausableTransaction(ctx, func(tx *gorm.DB, isNew bool) (bool, error) {
		desc := fmt.Sprintf("pausable %d", next)
		obj := models.Sample{ID: next, Description: &desc}
		if err := tx.Table(PausableTableName).Clauses(clause.Insert{Modifier: "OR REPLACE"}).Create(&obj).Error; err != nil {
			return false, err
		}
		next++
		return next > total, nil
	})
	if err != nil {
		return report, fmt.Errorf("pausable transaction: %w", err)
	}
	report.PausableRows = len(GetObjects[models.Sample](ctx, m, orm.Query{}, InTable(PausableTableName)))

	corrupted, err := m.Database().CheckIfCorrupted(ctx)
	if err != nil {
		return report, fmt.Errorf("integrity check: %w", err)
	}
	report.Corrupted = corrupted
	log.Info().Int("pausable_rows", report.PausableRows).Bool("corrupted", corrupted).Msg("demo: finished")
	return report, nil
}
