package migration

import (
	"github.com/orris-inc/usdtvote/internal/infrastructure/persistence/models"
)

// AutoMigrateModels lists every table the service owns.
func AutoMigrateModels() []interface{} {
	return []interface{}{
		&models.PaymentLedgerModel{},
		&models.PaymentIntentModel{},
		&models.ParticipantModel{},
	}
}
