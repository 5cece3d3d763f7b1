// Package serviceregister assigns a cluster-unique 10-bit node ID to this
// process and seeds a snowflake.Generator with it, so that independent
// processes never mint colliding IDs. It is grounded on the same
// gorm-backed Register/lease pattern as the resources package's SQL
// factories, and renews its lease with a robfig/cron `@every` job the way
// the teacher's cron package wires scheduled work.
package serviceregister

import "time"

// Model is one row of the cluster-wide node-ID lease table (signed 16-bit
// node_id per the reimplementation's storage schema).
type Model struct {
	NodeID       int16     `gorm:"column:node_id;primaryKey"`
	Name         string    `gorm:"column:name;index"`
	IP           string    `gorm:"column:ip"`
	Worker       string    `gorm:"column:worker;index"`
	StartupTime  time.Time `gorm:"column:startup_time"`
	LastRentTime time.Time `gorm:"column:last_rent_time"`
	Extra        ExtraMap  `gorm:"column:extra"`
}

func (Model) TableName() string { return "service_register" }
