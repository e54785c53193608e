package kvstore

import (
	"context"
	"fundverse/internal/global/errs"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KVItem mysql 介质中的一行
type KVItem struct {
	Key       string    `gorm:"column:item_key;primaryKey;size:191"`
	Value     string    `gorm:"type:longtext;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:milli"`
}

// MySQL 的 1114 表示表已满
const errTableFull = 1114

// Gorm 基于 gorm 的关系库介质
type Gorm struct {
	db *gorm.DB
}

// NewGorm 迁移 kv_item 表
func NewGorm(db *gorm.DB) (*Gorm, error) {
	if err := db.AutoMigrate(&KVItem{}); err != nil {
		return nil, errors.Wrap(err, "migrate kv_item")
	}
	return &Gorm{db: db}, nil
}

func (g *Gorm) GetItem(ctx context.Context, key string) (string, bool, error) {
	var item KVItem
	err := g.db.WithContext(ctx).Where("item_key = ?", key).Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, mapGormErr(err, "get "+key)
	}
	return item.Value, true, nil
}

func (g *Gorm) SetItem(ctx context.Context, key, value string) error {
	item := KVItem{Key: key, Value: value}
	err := g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "item_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&item).Error
	if err != nil {
		return mapGormErr(err, "set "+key)
	}
	return nil
}

func (g *Gorm) RemoveItem(ctx context.Context, key string) error {
	if err := g.db.WithContext(ctx).Where("item_key = ?", key).Delete(&KVItem{}).Error; err != nil {
		return mapGormErr(err, "remove "+key)
	}
	return nil
}

func (g *Gorm) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := g.db.WithContext(ctx).Model(&KVItem{}).
		Where("item_key LIKE ?", escapeLike(prefix)+"%").
		Order("item_key").
		Pluck("item_key", &keys).Error
	if err != nil {
		return nil, mapGormErr(err, "list keys")
	}
	return keys, nil
}

func (g *Gorm) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func mapGormErr(err error, op string) error {
	var me *mysqldriver.MySQLError
	if errors.As(err, &me) && me.Number == errTableFull {
		return errors.Wrapf(errs.ErrQuotaExceeded, "%s: %v", op, err)
	}
	if errors.Is(err, mysqldriver.ErrInvalidConn) {
		return errors.Wrapf(errs.ErrStorageUnavailable, "%s: %v", op, err)
	}
	return errors.Wrap(err, op)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
