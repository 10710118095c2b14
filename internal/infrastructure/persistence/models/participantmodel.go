package models

import (
	"time"

	"github.com/orris-inc/usdtvote/internal/shared/constants"
)

// ParticipantModel holds the running vote total credited to a participant.
type ParticipantModel struct {
	ID        string `gorm:"primaryKey;size:64"`
	Votes     int64  `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ParticipantModel) TableName() string {
	return constants.TableParticipants
}
