package database

import (
	"errors"
	"time"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/pkg/metrics"
	"gorm.io/gorm"
)

const startKey = "metrics:start"

// queryMetrics times every statement GORM executes and records it in
// metrics.DBQueryDuration under the statement kind.
type queryMetrics struct{}

func (queryMetrics) Name() string { return "crud:query_metrics" }

func (queryMetrics) Initialize(db *gorm.DB) error {
	cb := db.Callback()

	return errors.Join(
		cb.Create().Before("gorm:create").Register("metrics:before_create", startTimer),
		cb.Create().After("gorm:create").Register("metrics:after_create", stopTimer("insert")),
		cb.Query().Before("gorm:query").Register("metrics:before_query", startTimer),
		cb.Query().After("gorm:query").Register("metrics:after_query", stopTimer("select")),
		cb.Update().Before("gorm:update").Register("metrics:before_update", startTimer),
		cb.Update().After("gorm:update").Register("metrics:after_update", stopTimer("update")),
		cb.Delete().Before("gorm:delete").Register("metrics:before_delete", startTimer),
		cb.Delete().After("gorm:delete").Register("metrics:after_delete", stopTimer("delete")),
		cb.Row().Before("gorm:row").Register("metrics:before_row", startTimer),
		cb.Row().After("gorm:row").Register("metrics:after_row", stopTimer("select")),
		cb.Raw().Before("gorm:raw").Register("metrics:before_raw", startTimer),
		cb.Raw().After("gorm:raw").Register("metrics:after_raw", stopTimer("raw")),
	)
}

func startTimer(db *gorm.DB) {
	db.InstanceSet(startKey, time.Now())
}

func stopTimer(op string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		v, ok := db.InstanceGet(startKey)
		if !ok {
			return
		}
		start, ok := v.(time.Time)
		if !ok {
			return
		}
		metrics.ObserveDBQuery(op, start)
		if db.Error != nil {
			metrics.DBQueryErrors.WithLabelValues(op).Inc()
		}
	}
}
