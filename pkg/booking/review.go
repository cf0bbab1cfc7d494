package booking

import (
	"errors"

	"taxirental/pkg/ident"
	"taxirental/pkg/models"

	"gorm.io/gorm"
)

const firstReviewID = "REV00001"

// SubmitReview creates or updates the review a client holds for a driver.
// It is rejected outright unless a rent already links the pair, and the
// rating is bounds-checked again here even though callers validate input.
// The second return value reports whether a new review was created (false
// means an existing one was updated in place).
func SubmitReview(db *gorm.DB, clientEmail, driverName, message string, rating int) (*models.Review, bool, error) {
	if rating < 0 || rating > 5 {
		return nil, false, ErrRatingOutOfRange
	}

	var count int64
	err := db.Model(&models.Rent{}).
		Where("client = ? AND driver = ?", clientEmail, driverName).
		Count(&count).Error
	if err != nil {
		return nil, false, err
	}
	if count == 0 {
		return nil, false, ErrNoPriorRent
	}

	var review models.Review
	err = db.Where("client = ? AND driver = ?", clientEmail, driverName).First(&review).Error
	if err == nil {
		review.Message = message
		review.Rating = rating
		if err := db.Save(&review).Error; err != nil {
			return nil, false, err
		}
		return &review, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	reviewID, err := NextReviewID(db)
	if err != nil {
		return nil, false, err
	}
	review = models.Review{
		ReviewID: reviewID,
		Client:   clientEmail,
		Driver:   driverName,
		Message:  message,
		Rating:   rating,
	}
	if err := db.Create(&review).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// A concurrent submission created the row first; fold this
			// one into an update so the upsert stays idempotent.
			return SubmitReview(db, clientEmail, driverName, message, rating)
		}
		return nil, false, err
	}
	return &review, true, nil
}

// NextReviewID derives a fresh review id from the most recently created
// review, using the same increment rule as rent ids.
func NextReviewID(db *gorm.DB) (string, error) {
	var last models.Review
	err := db.Order("id DESC").First(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return firstReviewID, nil
	}
	if err != nil {
		return "", err
	}
	return ident.Next(last.ReviewID)
}
