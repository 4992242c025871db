package storage

import (
	"github.com/MZOG/fixlog/models"

	"gorm.io/gorm"
)

// Ownership is enforced here, in one place, instead of ad hoc WHERE clauses
// scattered across handlers. Every owner-facing read or write of buildings
// and alerts must resolve the row through one of these scopes.

// OwnedBuildings scopes building queries to the given owner.
func OwnedBuildings(ownerID uint) *gorm.DB {
	return DB.Model(&models.Building{}).Where("buildings.owner_id = ?", ownerID)
}

// OwnedAlerts scopes alert queries to alerts whose building belongs to the
// given owner. A caller can never reach another owner's alerts through it.
func OwnedAlerts(ownerID uint) *gorm.DB {
	return DB.Model(&models.Alert{}).
		Select("alerts.*").
		Joins("JOIN buildings ON buildings.id = alerts.building_id AND buildings.deleted_at IS NULL").
		Where("buildings.owner_id = ?", ownerID)
}

// CountOwnedBuildings returns how many buildings the owner has. The billing
// reconciler uses this as the subscription quantity.
func CountOwnedBuildings(ownerID uint) (int64, error) {
	var count int64
	err := DB.Model(&models.Building{}).Where("owner_id = ?", ownerID).Count(&count).Error
	return count, err
}
