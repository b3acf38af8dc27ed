package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/ZJUSCT/backoffice/internal/crud"
	"gorm.io/gorm"
)

// Query wraps a gorm statement over one model with optional bounds.
// Every narrowing call keeps the underlying statement reusable.
type Query struct {
	db    *gorm.DB
	model any
	first *int
	max   *int
}

func newQuery(db *gorm.DB, model any) *Query {
	return &Query{db: db.Model(model).Session(&gorm.Session{}), model: model}
}

func (q *Query) SetFirstResult(n *int) { q.first = n }
func (q *Query) SetMaxResults(n *int)  { q.max = n }

func (q *Query) FirstResult() *int { return q.first }
func (q *Query) MaxResults() *int  { return q.max }

// Where narrows the query.
func (q *Query) Where(query any, args ...any) {
	q.db = q.db.Where(query, args...).Session(&gorm.Session{})
}

// Order sets the result ordering.
func (q *Query) Order(value any) {
	q.db = q.db.Order(value).Session(&gorm.Session{})
}

// Count returns the number of matching rows, ignoring bounds.
func (q *Query) Count(ctx context.Context) (int64, error) {
	var total int64
	err := q.db.WithContext(ctx).Count(&total).Error
	return total, err
}

// Build returns the statement with its bounds applied.
func (q *Query) Build(ctx context.Context) *gorm.DB {
	db := q.db.WithContext(ctx)
	if q.first != nil {
		db = db.Offset(*q.first)
	}
	if q.max != nil {
		db = db.Limit(*q.max)
	}
	return db
}

// ModelManager runs bulk operations on Query values with gorm.
type ModelManager struct{}

var _ crud.ModelManager = ModelManager{}

func asQuery(class string, q crud.Query) (*Query, error) {
	gq, ok := q.(*Query)
	if !ok {
		return nil, fmt.Errorf("%w: %s query is %T, not a gorm query", crud.ErrConfiguration, class, q)
	}
	return gq, nil
}

func (ModelManager) AddIdentifiersToQuery(class string, q crud.Query, ids []string) error {
	gq, err := asQuery(class, q)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return errors.New("no identifiers to add")
	}
	gq.Where("id IN ?", ids)
	return nil
}

func (ModelManager) BatchDelete(ctx context.Context, class string, q crud.Query) error {
	gq, err := asQuery(class, q)
	if err != nil {
		return err
	}
	if err := gq.Build(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(gq.model).Error; err != nil {
		return fmt.Errorf("batch delete %s: %w", class, err)
	}
	return nil
}

func (ModelManager) BatchUpdate(ctx context.Context, class string, q crud.Query, values map[string]any) error {
	gq, err := asQuery(class, q)
	if err != nil {
		return err
	}
	if err := gq.Build(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Updates(values).Error; err != nil {
		return fmt.Errorf("batch update %s: %w", class, err)
	}
	return nil
}
