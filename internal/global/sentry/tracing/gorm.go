package tracing

import (
	"time"

	"github.com/getsentry/sentry-go"
	"gorm.io/gorm"
)

const (
	gormSpanKey    = "sentry:span"
	gormStartKey   = "sentry:start"
	callbackPrefix = "sentry_tracing"
)

// GormPlugin 实现 gorm.Plugin，追踪 mysql 介质上的 SQL 操作
type GormPlugin struct {
	slowThreshold time.Duration
}

func NewGormPlugin(slowThreshold time.Duration) *GormPlugin {
	return &GormPlugin{slowThreshold: slowThreshold}
}

func (p *GormPlugin) Name() string {
	return "SentryTracingPlugin"
}

func (p *GormPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	_ = cb.Create().Before("gorm:create").Register(callbackPrefix+":before_create", p.before("kvstore.sql.create"))
	_ = cb.Query().Before("gorm:query").Register(callbackPrefix+":before_query", p.before("kvstore.sql.query"))
	_ = cb.Delete().Before("gorm:delete").Register(callbackPrefix+":before_delete", p.before("kvstore.sql.delete"))
	_ = cb.Raw().Before("gorm:raw").Register(callbackPrefix+":before_raw", p.before("kvstore.sql.raw"))

	_ = cb.Create().After("gorm:create").Register(callbackPrefix+":after_create", p.after)
	_ = cb.Query().After("gorm:query").Register(callbackPrefix+":after_query", p.after)
	_ = cb.Delete().After("gorm:delete").Register(callbackPrefix+":after_delete", p.after)
	_ = cb.Raw().After("gorm:raw").Register(callbackPrefix+":after_raw", p.after)
	return nil
}

func (p *GormPlugin) before(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		if db.Statement == nil || db.Statement.Context == nil {
			return
		}
		parent := sentry.SpanFromContext(db.Statement.Context)
		if parent == nil {
			return
		}

		span := parent.StartChild(operation)
		// 使用表名，不记录完整 SQL
		span.Description = db.Statement.Table
		span.SetData("db.system", "mysql")

		db.InstanceSet(gormStartKey, time.Now())
		db.InstanceSet(gormSpanKey, span)
		db.Statement.Context = span.Context()
	}
}

func (p *GormPlugin) after(db *gorm.DB) {
	startVal, ok := db.InstanceGet(gormStartKey)
	if !ok {
		return
	}
	spanVal, ok := db.InstanceGet(gormSpanKey)
	if !ok {
		return
	}
	start, _ := startVal.(time.Time)
	span, _ := spanVal.(*sentry.Span)
	if span == nil {
		return
	}
	span.SetData("db.rows_affected", db.RowsAffected)
	finish(span, start, p.slowThreshold, db.Error, "db.error")
}
