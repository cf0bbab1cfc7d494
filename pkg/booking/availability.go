package booking

import (
	"taxirental/pkg/models"

	"gorm.io/gorm"
)

// FindAvailableModels returns every model that has at least one qualified
// driver without a rent on the given date, ordered by model id. A model
// whose remaining qualified drivers are all booked that day drops out; one
// booked driver does not hide a model while another qualified driver is
// free. Read-only; date must already be a valid YYYY-MM-DD string.
func FindAvailableModels(db *gorm.DB, date string) ([]ModelSummary, error) {
	busyDrivers := db.Model(&models.Rent{}).
		Select("driver").
		Where("date = ?", date)

	freeDriverExists := db.Table("drives").
		Select("1").
		Where("drives.model_id = models.model_id").
		Where("drives.driver NOT IN (?)", busyDrivers)

	var summaries []ModelSummary
	err := db.Model(&models.Model{}).
		Select("model_id, car_id, color, transmission, year").
		Where("EXISTS (?)", freeDriverExists).
		Order("model_id ASC").
		Scan(&summaries).Error
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

// AvailableDrivers lists the drivers qualified for a model and free on a
// date, ordered by name. The head of the list is the booking tie-break.
func AvailableDrivers(db *gorm.DB, modelID, date string) ([]string, error) {
	busyDrivers := db.Model(&models.Rent{}).
		Select("driver").
		Where("date = ?", date)

	var drivers []string
	err := db.Model(&models.Drives{}).
		Select("driver").
		Where("model_id = ?", modelID).
		Where("driver NOT IN (?)", busyDrivers).
		Order("driver ASC").
		Scan(&drivers).Error
	if err != nil {
		return nil, err
	}
	return drivers, nil
}
