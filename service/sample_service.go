package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"litebridge/core"
	"litebridge/database"
	"litebridge/models"
	"litebridge/orm"
)

var ErrSampleAlreadyExists = errors.New("sample already exists")

type sentinelError struct {
	msg      string
	sentinel error
}

func (e sentinelError) Error() string {
	return e.msg
}

func (e sentinelError) Unwrap() error {
	return e.sentinel
}

func wrapSentinel(msg string, sentinel error) error {
	return sentinelError{msg: msg, sentinel: sentinel}
}

// updatableColumns lists the Sample columns a partial update may touch.
var updatableColumns = map[string]bool{
	"description":        true,
	"my_class":           true,
	"multi_unique_part1": true,
	"multi_unique_part2": true,
	"note":               true,
}

// SampleService handles sample business logic
type SampleService struct {
	table *database.Table[models.Sample]
}

// NewSampleService constructs a sample service on tableName ("" means Sample)
func NewSampleService(db *database.Database, tableName string) *SampleService {
	return &SampleService{table: database.GetTable[models.Sample](db, tableName)}
}

func (s *SampleService) TableName() string { return s.table.Name() }

// EnsureTable creates the sample table and its indexes if missing
func (s *SampleService) EnsureTable(ctx context.Context) error {
	if err := s.table.Create(ctx); err != nil {
		return fmt.Errorf("failed to create sample table: %w", err)
	}
	return nil
}

// ListPage returns samples with pagination. order is a column name,
// prefixed with '-' for descending order.
func (s *SampleService) ListPage(ctx context.Context, page, pageSize int, order string) ([]models.Sample, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	orderBy, err := parseOrder(order)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.table.Count(ctx, orm.Query{})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count samples: %w", err)
	}

	samples, err := s.table.GetObjects(ctx, orm.Query{
		OrderBy: []orm.OrderBy{orderBy},
		Limit:   orm.Limit(pageSize),
		Offset:  orm.Offset((page - 1) * pageSize),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list samples: %w", err)
	}
	return samples, total, nil
}

func parseOrder(order string) (orm.OrderBy, error) {
	order = strings.TrimSpace(order)
	if order == "" {
		return orm.Asc("id"), nil
	}
	desc := strings.HasPrefix(order, "-")
	column := strings.TrimPrefix(order, "-")
	if column != "id" && !updatableColumns[column] {
		return orm.OrderBy{}, core.NewBadRequestError(fmt.Sprintf("cannot order by %q", column))
	}
	return orm.OrderBy{Column: column, Desc: desc}, nil
}

// Get fetches a sample by ID
func (s *SampleService) Get(ctx context.Context, id int64) (*models.Sample, error) {
	sample, ok, err := s.table.GetObject(ctx, orm.Query{Where: orm.Where("id = ?", id)})
	if err != nil {
		return nil, fmt.Errorf("failed to get sample: %w", err)
	}
	if !ok {
		return nil, wrapSentinel(fmt.Sprintf("sample not found: %d", id), core.ErrSampleNotFound)
	}
	return &sample, nil
}

// Create inserts a new sample; an existing ID is rejected
func (s *SampleService) Create(ctx context.Context, req models.SampleCreate) (*models.Sample, error) {
	req.Normalize()
	if err := requireCipher(req.Note); err != nil {
		return nil, err
	}
	sample := req.Sample()

	n, err := s.table.InsertOrIgnore(ctx, []models.Sample{sample})
	if err != nil {
		return nil, fmt.Errorf("failed to create sample: %w", err)
	}
	if n == 0 {
		return nil, wrapSentinel(fmt.Sprintf("sample already exists: %d", sample.ID), ErrSampleAlreadyExists)
	}
	return s.Get(ctx, sample.ID)
}

// Save inserts or replaces a sample
func (s *SampleService) Save(ctx context.Context, req models.SampleCreate) (*models.Sample, error) {
	req.Normalize()
	if err := requireCipher(req.Note); err != nil {
		return nil, err
	}
	sample := req.Sample()
	if _, err := s.table.InsertOrReplace(ctx, []models.Sample{sample}); err != nil {
		return nil, fmt.Errorf("failed to save sample: %w", err)
	}
	return &sample, nil
}

// requireCipher rejects a non-empty note while no cipher key is configured.
func requireCipher(note string) error {
	if note != "" && !orm.CipherConfigured() {
		return fmt.Errorf("cannot store note: %w", orm.ErrNoCipher)
	}
	return nil
}

// Update writes the listed columns of req into sample id
func (s *SampleService) Update(ctx context.Context, id int64, req models.SampleUpdate) (*models.Sample, error) {
	if len(req.Columns) == 0 {
		return nil, core.NewBadRequestError("no columns to update")
	}
	for _, c := range req.Columns {
		if !updatableColumns[c] {
			return nil, core.NewBadRequestError(fmt.Sprintf("column %q cannot be updated", c))
		}
	}

	req.Values.Normalize()
	if slices.Contains(req.Columns, "note") {
		if err := requireCipher(req.Values.Note); err != nil {
			return nil, err
		}
	}
	values := req.Values.Sample(id)

	n, err := s.table.Update(ctx, req.Columns, values, orm.Query{Where: orm.Where("id = ?", id)})
	if err != nil {
		return nil, fmt.Errorf("failed to update sample: %w", err)
	}
	if n == 0 {
		return nil, wrapSentinel(fmt.Sprintf("sample not found: %d", id), core.ErrSampleNotFound)
	}
	return s.Get(ctx, id)
}

// Delete deletes a sample by ID
func (s *SampleService) Delete(ctx context.Context, id int64) error {
	n, err := s.table.Delete(ctx, orm.Query{Where: orm.Where("id = ?", id)})
	if err != nil {
		return fmt.Errorf("failed to delete sample: %w", err)
	}
	if n == 0 {
		return wrapSentinel(fmt.Sprintf("sample not found: %d", id), core.ErrSampleNotFound)
	}
	return nil
}
