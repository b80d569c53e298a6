package repository

import "gorm.io/gorm"

// Migrate creates or updates every table the store owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&propertyModel{},
		&roomTypeModel{},
		&roomModel{},
		&calendarDayModel{},
		&channelAllocationModel{},
		&holdModel{},
		&bookingModel{},
		&bookingItemModel{},
		&bookingGuestModel{},
		&ratePlanModel{},
		&ratePlanRuleModel{},
		&auditLogModel{},
		&apiKeyModel{},
		&idempotencyKeyModel{},
	)
}
