package booking

import (
	"errors"

	"taxirental/pkg/ident"
	"taxirental/pkg/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const firstRentID = "REN00001"

// BookRent books one rent: it picks the lexicographically smallest driver
// qualified for the model and free on the date, and inserts the rent row.
// The insert is guarded by the unique (driver, date) index with ON CONFLICT
// DO NOTHING, so when two bookings race for the same driver exactly one row
// lands; the loser silently moves on to the next candidate driver and ends
// with ErrNoAvailableDriver once candidates run out.
//
// An empty rentID asks for an auto-generated one, derived from the latest
// existing rent id.
func BookRent(db *gorm.DB, rentID, date, clientEmail, modelID string) (*models.Rent, error) {
	var count int64
	if err := db.Model(&models.Client{}).Where("email = ?", clientEmail).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrUnknownClient
	}
	if err := db.Model(&models.Model{}).Where("model_id = ?", modelID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrUnknownModel
	}

	if rentID == "" {
		next, err := NextRentID(db)
		if err != nil {
			return nil, err
		}
		rentID = next
	} else {
		if err := db.Model(&models.Rent{}).Where("rent_id = ?", rentID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, ErrDuplicateRentID
		}
	}

	candidates, err := AvailableDrivers(db, modelID, date)
	if err != nil {
		return nil, err
	}

	for _, driver := range candidates {
		rent := models.Rent{
			RentID:  rentID,
			Date:    date,
			Client:  clientEmail,
			Driver:  driver,
			ModelID: modelID,
		}
		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "driver"}, {Name: "date"}},
			DoNothing: true,
		}).Create(&rent)
		if result.Error != nil {
			// The (driver, date) conflict is absorbed by the clause, so a
			// duplicate key here means the rent id itself raced in.
			if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
				return nil, ErrDuplicateRentID
			}
			return nil, result.Error
		}
		if result.RowsAffected == 1 {
			return &rent, nil
		}
		// A concurrent booking took this driver between the candidate
		// query and the insert; try the next one.
	}
	return nil, ErrNoAvailableDriver
}

// NextRentID derives a fresh rent id from the most recently created rent.
func NextRentID(db *gorm.DB) (string, error) {
	var last models.Rent
	err := db.Order("id DESC").First(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return firstRentID, nil
	}
	if err != nil {
		return "", err
	}
	return ident.Next(last.RentID)
}
