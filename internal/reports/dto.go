package reports

import (
	"time"

	"github.com/angelmondragon/coinledger-backend/pkg/db/models"
)

// ReportDTO is a report descriptor with a resolvable download reference.
type ReportDTO struct {
	ID           uint64    `json:"id"`
	UserID       string    `json:"userId"`
	FileName     string    `json:"fileName"`
	DownloadURL  string    `json:"downloadUrl"`
	GeneratedAt  time.Time `json:"generatedAt"`
	StartDate    string    `json:"startDate"`
	EndDate      string    `json:"endDate"`
	TotalRecords int64     `json:"totalRecords"`
	TotalCoins   int64     `json:"totalCoins"`
	FileSize     int64     `json:"fileSize"`
	CreatedAt    time.Time `json:"createdAt"`
}

type urlResolver interface {
	URL(userID, fileName string) string
}

func toDTO(r models.ReportRecord, urls urlResolver) ReportDTO {
	return ReportDTO{
		ID:           r.ID,
		UserID:       r.UserID,
		FileName:     r.FileName,
		DownloadURL:  urls.URL(r.UserID, r.FileName),
		GeneratedAt:  r.GeneratedAt.UTC(),
		StartDate:    r.StartDate.UTC().Format(windowLayout),
		EndDate:      r.EndDate.UTC().Format(windowLayout),
		TotalRecords: r.TotalRecords,
		TotalCoins:   r.TotalCoins,
		FileSize:     r.FileSize,
		CreatedAt:    r.CreatedAt,
	}
}
