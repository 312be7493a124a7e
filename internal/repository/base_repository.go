package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Filter 以欄位等值過濾；值為 nil 代表 IS NULL
type Filter map[string]interface{}

type baseRepository struct {
	db *gorm.DB
}

func (r *baseRepository) where(ctx context.Context, model interface{}, filter Filter) *gorm.DB {
	q := r.db.WithContext(ctx)
	if model != nil {
		q = q.Model(model)
	}

	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if filter[k] == nil {
			q = q.Where(k + " IS NULL")
			continue
		}
		q = q.Where(k+" = ?", filter[k])
	}
	return q
}

func (r *baseRepository) insert(ctx context.Context, record interface{}) error {
	return translate(r.db.WithContext(ctx).Create(record).Error)
}

func (r *baseRepository) selectOne(ctx context.Context, dest interface{}, filter Filter) error {
	return translate(r.where(ctx, nil, filter).First(dest).Error)
}

func (r *baseRepository) selectMany(ctx context.Context, dest interface{}, filter Filter, order string) error {
	q := r.where(ctx, nil, filter)
	if order != "" {
		q = q.Order(order)
	}
	return translate(q.Find(dest).Error)
}

// update 回傳受影響列數，條件式更新靠它判斷是否搶到
func (r *baseRepository) update(ctx context.Context, model interface{}, filter Filter, patch map[string]interface{}) (int64, error) {
	res := r.where(ctx, model, filter).Updates(patch)
	if res.Error != nil {
		return 0, translate(res.Error)
	}
	return res.RowsAffected, nil
}

func (r *baseRepository) delete(ctx context.Context, model interface{}, filter Filter) error {
	return translate(r.where(ctx, nil, filter).Delete(model).Error)
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// "23505" is the PostgreSQL error code for unique_violation
		if pgErr.Code == "23505" {
			return ErrDuplicate
		}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrDatabase, err)
}
