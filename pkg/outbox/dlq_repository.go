package outbox

import (
	"errors"
	"time"

	"github.com/angelmondragon/coinledger-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.FailedAt.IsZero() {
		entry.FailedAt = time.Now().UTC()
	}
	if entry.ErrorMessage != nil {
		msg := truncate(*entry.ErrorMessage)
		entry.ErrorMessage = &msg
	}
	return tx.Create(&entry).Error
}

// FindByEventIDTx returns nil when the event has never been dead-lettered.
func (r *DLQRepository) FindByEventIDTx(tx *gorm.DB, eventID uuid.UUID) (*models.OutboxDLQ, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	var dlq models.OutboxDLQ
	err := tx.Where("event_id = ?", eventID).First(&dlq).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &dlq, nil
}

// RefreshTx overwrites the failure details of an existing dead letter, used
// when a replayed event fails again.
func (r *DLQRepository) RefreshTx(tx *gorm.DB, id uuid.UUID, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if entry.FailedAt.IsZero() {
		entry.FailedAt = time.Now().UTC()
	}
	updates := map[string]any{
		"error_reason":  entry.ErrorReason,
		"attempt_count": entry.AttemptCount,
		"failed_at":     entry.FailedAt,
		"payload_json":  entry.Payload,
	}
	if entry.ErrorMessage != nil {
		updates["error_message"] = truncate(*entry.ErrorMessage)
	}
	return tx.Model(&models.OutboxDLQ{}).Where("id = ?", id).Updates(updates).Error
}
