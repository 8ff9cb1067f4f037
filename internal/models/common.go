package models

import "time"

// AuditFields are the audit columns shared by persisted records.
type AuditFields struct {
	CreatedAt     time.Time `db:"created_at" bson:"created_at"`
	CreatedBy     string    `db:"created_by" bson:"created_by"`
	LastUpdatedAt time.Time `db:"last_updated_at" bson:"last_updated_at"`
	LastUpdatedBy string    `db:"last_updated_by" bson:"last_updated_by"`
}
