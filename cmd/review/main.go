package main

import (
	"errors"
	"log"
	"net/http"

	"taxirental/pkg/booking"
	"taxirental/pkg/database"
	"taxirental/pkg/middleware"
	"taxirental/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

var db *gorm.DB

func main() {
	log.Println("Starting review service...")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment as-is")
	}

	db = database.Init()

	server := gin.Default()
	server.Use(middleware.Metrics("review"))

	server.GET("/api/v1/reviews", getReview)
	server.GET("/api/v1/reviews/driver/:name", getDriverReviews)
	server.POST("/api/v1/reviews", submitReview)
	server.GET("/manage/health", healthCheck)
	server.GET("/metrics", gin.WrapH(promhttp.Handler()))

	log.Println("Review service starting on :8050")
	if err := server.Run(":8050"); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func getReview(c *gin.Context) {
	email := c.GetHeader("X-User-Email")
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "X-User-Email header is required"})
		return
	}
	driver := c.Query("driver")
	if driver == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "driver is required"})
		return
	}

	var review models.Review
	err := db.Where("client = ? AND driver = ?", email, driver).First(&review).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "review not found"})
		return
	}
	c.JSON(http.StatusOK, reviewJSON(review))
}

func getDriverReviews(c *gin.Context) {
	driver := c.Param("name")

	var reviews []models.Review
	err := db.Where("driver = ?", driver).Order("review_id ASC").Find(&reviews).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	items := make([]gin.H, len(reviews))
	for i, review := range reviews {
		items[i] = reviewJSON(review)
	}
	c.JSON(http.StatusOK, items)
}

func submitReview(c *gin.Context) {
	email := c.GetHeader("X-User-Email")
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "X-User-Email header is required"})
		return
	}

	var request struct {
		Driver  string `json:"driver" binding:"required"`
		Message string `json:"message"`
		Rating  int    `json:"rating"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}
	if request.Rating < 0 || request.Rating > 5 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rating must be between 0 and 5"})
		return
	}

	review, created, err := booking.SubmitReview(db, email, request.Driver, request.Message, request.Rating)
	switch {
	case errors.Is(err, booking.ErrNoPriorRent):
		c.JSON(http.StatusConflict, gin.H{"reason": "NO_PRIOR_RENT", "error": err.Error()})
	case errors.Is(err, booking.ErrRatingOutOfRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	case created:
		c.JSON(http.StatusCreated, reviewJSON(*review))
	default:
		c.JSON(http.StatusOK, reviewJSON(*review))
	}
}

func reviewJSON(review models.Review) gin.H {
	return gin.H{
		"reviewId": review.ReviewID,
		"client":   review.Client,
		"driver":   review.Driver,
		"message":  review.Message,
		"rating":   review.Rating,
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}
