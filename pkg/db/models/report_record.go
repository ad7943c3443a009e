package models

import "time"

// ReportRecord describes a generated PDF statement. It snapshots a window of
// ledger entries and does not reference them directly.
type ReportRecord struct {
	ID           uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UserID       string    `gorm:"column:user_id;type:text;not null;index:idx_report_history_user_generated,priority:1" json:"userId"`
	FileName     string    `gorm:"column:file_name;type:text;not null;uniqueIndex" json:"fileName"`
	GeneratedAt  time.Time `gorm:"column:generated_at;not null;index:idx_report_history_user_generated,priority:2" json:"generatedAt"`
	StartDate    time.Time `gorm:"column:start_date;not null" json:"startDate"`
	EndDate      time.Time `gorm:"column:end_date;not null" json:"endDate"`
	TotalRecords int64     `gorm:"column:total_records;not null;default:0" json:"totalRecords"`
	TotalCoins   int64     `gorm:"column:total_coins;not null;default:0" json:"totalCoins"`
	FileSize     int64     `gorm:"column:file_size;not null;default:0" json:"fileSize"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (ReportRecord) TableName() string { return "report_history" }
