package main

import (
	"errors"
	"log"
	"net/http"
	"time"

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
	log.Println("Starting rental service...")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment as-is")
	}

	db = database.Init()

	server := gin.Default()
	server.Use(middleware.Metrics("rental"))

	server.POST("/api/v1/clients", registerClient)
	server.POST("/api/v1/clients/:email/addresses", addClientAddress)
	server.POST("/api/v1/clients/:email/cards", addClientCard)
	server.GET("/api/v1/models/available", getAvailableModels)
	server.POST("/api/v1/rents", createRent)
	server.GET("/api/v1/rents", getClientRents)
	server.GET("/manage/health", healthCheck)
	server.GET("/metrics", gin.WrapH(promhttp.Handler()))

	log.Println("Rental service starting on :8070")
	if err := server.Run(":8070"); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func registerClient(c *gin.Context) {
	var request struct {
		Email     string                 `json:"email" binding:"required,email"`
		Name      string                 `json:"name" binding:"required"`
		Addresses []booking.AddressInput `json:"addresses"`
		Cards     []booking.CardInput    `json:"cards"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}

	err := booking.RegisterClient(db, request.Email, request.Name, request.Addresses, request.Cards)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, gin.H{"email": request.Email, "name": request.Name})
	case errors.Is(err, booking.ErrNoAddress), errors.Is(err, booking.ErrNoCreditCard):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, booking.ErrDuplicateClient):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, booking.ErrDuplicateCard):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func addClientAddress(c *gin.Context) {
	email := c.Param("email")

	var count int64
	if err := db.Model(&models.Client{}).Where("email = ?", email).Count(&count).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if count == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
		return
	}

	var request booking.AddressInput
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}
	if err := booking.LinkClientAddress(db, email, request); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"client": email, "city": request.City})
}

func addClientCard(c *gin.Context) {
	email := c.Param("email")

	var request booking.CardInput
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}

	created, err := booking.AddCreditCard(db, email, request)
	switch {
	case errors.Is(err, booking.ErrUnknownClient):
		c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	case created:
		c.JSON(http.StatusCreated, gin.H{"created": true})
	default:
		c.JSON(http.StatusOK, gin.H{"created": false})
	}
}

func getAvailableModels(c *gin.Context) {
	date := c.Query("date")
	if !isValidDate(date) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be a valid YYYY-MM-DD date"})
		return
	}

	summaries, err := booking.FindAvailableModels(db, date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "items": summaries})
}

func createRent(c *gin.Context) {
	email := c.GetHeader("X-User-Email")
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "X-User-Email header is required"})
		return
	}

	var request struct {
		RentID  string `json:"rentId"`
		Date    string `json:"date" binding:"required"`
		ModelID string `json:"modelId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}
	if !isValidDate(request.Date) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be a valid YYYY-MM-DD date"})
		return
	}

	rent, err := booking.BookRent(db, request.RentID, request.Date, email, request.ModelID)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, gin.H{
			"rentId":  rent.RentID,
			"date":    rent.Date,
			"client":  rent.Client,
			"driver":  rent.Driver,
			"modelId": rent.ModelID,
		})
	case errors.Is(err, booking.ErrNoAvailableDriver):
		c.JSON(http.StatusConflict, gin.H{"reason": "NO_AVAILABLE_DRIVER", "error": err.Error()})
	case errors.Is(err, booking.ErrDuplicateRentID):
		c.JSON(http.StatusConflict, gin.H{"reason": "DUPLICATE_RENT_ID", "error": err.Error()})
	case errors.Is(err, booking.ErrUnknownClient), errors.Is(err, booking.ErrUnknownModel):
		c.JSON(http.StatusNotFound, gin.H{"reason": "UNKNOWN_CLIENT_OR_MODEL", "error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func getClientRents(c *gin.Context) {
	email := c.GetHeader("X-User-Email")
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "X-User-Email header is required"})
		return
	}

	type rentRow struct {
		RentID       string
		Date         string
		Driver       string
		ModelID      string
		CarID        string
		Color        string
		Transmission string
		Year         int
	}
	var rows []rentRow
	err := db.Table("rents").
		Select("rents.rent_id, rents.date, rents.driver, models.model_id, models.car_id, models.color, models.transmission, models.year").
		Joins("JOIN models ON models.model_id = rents.model_id").
		Where("rents.client = ?", email).
		Order("rents.date ASC").
		Scan(&rows).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	items := make([]gin.H, len(rows))
	for i, row := range rows {
		items[i] = gin.H{
			"rentId":       row.RentID,
			"date":         row.Date,
			"driver":       row.Driver,
			"modelId":      row.ModelID,
			"carId":        row.CarID,
			"color":        row.Color,
			"transmission": row.Transmission,
			"year":         row.Year,
		}
	}
	c.JSON(http.StatusOK, items)
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

func isValidDate(date string) bool {
	_, err := time.Parse("2006-01-02", date)
	return err == nil
}
