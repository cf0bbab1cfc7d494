package booking

import (
	"testing"

	"taxirental/pkg/models"

	"github.com/stretchr/testify/assert"
)

func TestSubmitReviewRequiresPriorRent(t *testing.T) {
	db := setupTestDB(t)
	seedFleet(t, db)

	_, _, err := SubmitReview(db, "kim@example.com", "Alice", "great driver", 5)
	assert.ErrorIs(t, err, ErrNoPriorRent)

	// Repeated attempts never leave a row behind.
	_, _, err = SubmitReview(db, "kim@example.com", "Alice", "still great", 4)
	assert.ErrorIs(t, err, ErrNoPriorRent)

	var count int64
	db.Model(&models.Review{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestSubmitReviewCreateThenUpdate(t *testing.T) {
	db := setupTestDB(t)
	seedFleet(t, db)
	db.Create(&models.Rent{RentID: "REN00001", Date: "2024-01-01", Client: "kim@example.com", Driver: "Alice", ModelID: "MOD00001"})

	review, created, err := SubmitReview(db, "kim@example.com", "Alice", "smooth ride", 4)
	assert.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "REV00001", review.ReviewID)

	review, created, err = SubmitReview(db, "kim@example.com", "Alice", "even better", 5)
	assert.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "REV00001", review.ReviewID)
	assert.Equal(t, "even better", review.Message)
	assert.Equal(t, 5, review.Rating)

	var count int64
	db.Model(&models.Review{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestSubmitReviewRatingBounds(t *testing.T) {
	db := setupTestDB(t)
	seedFleet(t, db)
	db.Create(&models.Rent{RentID: "REN00001", Date: "2024-01-01", Client: "kim@example.com", Driver: "Alice", ModelID: "MOD00001"})

	_, _, err := SubmitReview(db, "kim@example.com", "Alice", "bad rating", 6)
	assert.ErrorIs(t, err, ErrRatingOutOfRange)

	_, _, err = SubmitReview(db, "kim@example.com", "Alice", "bad rating", -1)
	assert.ErrorIs(t, err, ErrRatingOutOfRange)

	_, _, err = SubmitReview(db, "kim@example.com", "Alice", "edge rating", 0)
	assert.NoError(t, err)
}

func TestSubmitReviewIDSequence(t *testing.T) {
	db := setupTestDB(t)
	seedFleet(t, db)
	db.Create(&models.Rent{RentID: "REN00001", Date: "2024-01-01", Client: "kim@example.com", Driver: "Alice", ModelID: "MOD00001"})
	db.Create(&models.Rent{RentID: "REN00002", Date: "2024-01-02", Client: "kim@example.com", Driver: "Bob", ModelID: "MOD00001"})

	first, _, err := SubmitReview(db, "kim@example.com", "Alice", "fine", 3)
	assert.NoError(t, err)
	assert.Equal(t, "REV00001", first.ReviewID)

	second, _, err := SubmitReview(db, "kim@example.com", "Bob", "fine too", 3)
	assert.NoError(t, err)
	assert.Equal(t, "REV00002", second.ReviewID)
}
