package main

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"taxirental/pkg/booking"
	"taxirental/pkg/cache"
	"taxirental/pkg/database"
	"taxirental/pkg/middleware"
	"taxirental/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	db      *gorm.DB
	catalog *cache.Cache
)

const catalogKey = "fleet:models"

var (
	errNotFound = errors.New("record not found")
	errHasRents = errors.New("record is referenced by existing rents")
)

func main() {
	log.Println("Starting fleet service...")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment as-is")
	}

	db = database.Init()
	catalog = cache.New(5 * time.Minute)

	server := gin.Default()
	server.Use(middleware.Metrics("fleet"))

	server.POST("/api/v1/cars", addCar)
	server.DELETE("/api/v1/cars/:carId", deleteCar)
	server.GET("/api/v1/models", getModels)
	server.POST("/api/v1/models", addModel)
	server.DELETE("/api/v1/models/:modelId", deleteModel)
	server.POST("/api/v1/drivers", registerDriver)
	server.DELETE("/api/v1/drivers/:name", deleteDriver)
	server.PUT("/api/v1/drivers/:name/address", updateDriverAddress)
	server.POST("/api/v1/drivers/:name/qualifications", qualifyDriver)
	server.POST("/api/v1/managers", registerManager)
	server.GET("/api/v1/reports/models-rents", getModelsRents)
	server.GET("/api/v1/reports/top-clients", getTopClients)
	server.GET("/api/v1/reports/driver-stats", getDriverStats)
	server.GET("/api/v1/reports/clients-by-cities", getClientsByCities)
	server.GET("/manage/health", healthCheck)
	server.GET("/metrics", gin.WrapH(promhttp.Handler()))

	log.Println("Fleet service starting on :8060")
	if err := server.Run(":8060"); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func addCar(c *gin.Context) {
	var request struct {
		CarID string `json:"carId" binding:"required"`
		Brand string `json:"brand" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}
	if len(request.CarID) != 8 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "carId must be exactly 8 characters"})
		return
	}

	car := models.Car{CarID: request.CarID, Brand: request.Brand}
	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&car)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": result.Error.Error()})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusConflict, gin.H{"created": false, "error": "car already exists"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"created": true, "carId": car.CarID, "brand": car.Brand})
}

// deleteCar removes a car and cascades to its models, but only when none
// of those models is referenced by a rent.
func deleteCar(c *gin.Context) {
	carID := c.Param("carId")

	err := db.Transaction(func(tx *gorm.DB) error {
		var car models.Car
		if err := tx.Where("car_id = ?", carID).First(&car).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errNotFound
			}
			return err
		}

		var modelIDs []string
		if err := tx.Model(&models.Model{}).Where("car_id = ?", carID).Pluck("model_id", &modelIDs).Error; err != nil {
			return err
		}
		if len(modelIDs) > 0 {
			var rented int64
			if err := tx.Model(&models.Rent{}).Where("model_id IN ?", modelIDs).Count(&rented).Error; err != nil {
				return err
			}
			if rented > 0 {
				return errHasRents
			}
			if err := tx.Where("model_id IN ?", modelIDs).Delete(&models.Drives{}).Error; err != nil {
				return err
			}
			if err := tx.Where("car_id = ?", carID).Delete(&models.Model{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&car).Error
	})

	switch {
	case errors.Is(err, errNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "car not found"})
	case errors.Is(err, errHasRents):
		c.JSON(http.StatusConflict, gin.H{"reason": "HAS_RENTS", "error": "car has models referenced by rents"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		catalog.Invalidate(c.Request.Context(), catalogKey)
		c.JSON(http.StatusOK, gin.H{"deleted": carID})
	}
}

func getModels(c *gin.Context) {
	var summaries []booking.ModelSummary
	if catalog.Get(c.Request.Context(), catalogKey, &summaries) {
		c.JSON(http.StatusOK, gin.H{"items": summaries, "cached": true})
		return
	}

	err := db.Model(&models.Model{}).
		Select("model_id, car_id, color, transmission, year").
		Order("model_id ASC").
		Scan(&summaries).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	catalog.Set(c.Request.Context(), catalogKey, summaries)
	c.JSON(http.StatusOK, gin.H{"items": summaries, "cached": false})
}

func addModel(c *gin.Context) {
	var request struct {
		ModelID      string `json:"modelId" binding:"required"`
		CarID        string `json:"carId" binding:"required"`
		Color        string `json:"color" binding:"required"`
		Transmission string `json:"transmission" binding:"required"`
		Year         int    `json:"year" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}
	if len(request.ModelID) != 8 || len(request.CarID) != 8 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "modelId and carId must be exactly 8 characters"})
		return
	}
	if request.Transmission != "manual" && request.Transmission != "automatic" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "transmission must be manual or automatic"})
		return
	}

	var count int64
	if err := db.Model(&models.Car{}).Where("car_id = ?", request.CarID).Count(&count).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if count == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "car not found"})
		return
	}

	model := models.Model{
		ModelID:      request.ModelID,
		CarID:        request.CarID,
		Color:        request.Color,
		Transmission: request.Transmission,
		Year:         request.Year,
	}
	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&model)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": result.Error.Error()})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusConflict, gin.H{"created": false, "error": "model already exists"})
		return
	}

	catalog.Invalidate(c.Request.Context(), catalogKey)
	c.JSON(http.StatusCreated, gin.H{"created": true, "modelId": model.ModelID})
}

// deleteModel restricts deletion while rents reference the model.
func deleteModel(c *gin.Context) {
	modelID := c.Param("modelId")

	err := db.Transaction(func(tx *gorm.DB) error {
		var model models.Model
		if err := tx.Where("model_id = ?", modelID).First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errNotFound
			}
			return err
		}
		var rented int64
		if err := tx.Model(&models.Rent{}).Where("model_id = ?", modelID).Count(&rented).Error; err != nil {
			return err
		}
		if rented > 0 {
			return errHasRents
		}
		if err := tx.Where("model_id = ?", modelID).Delete(&models.Drives{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model).Error
	})

	switch {
	case errors.Is(err, errNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "model not found"})
	case errors.Is(err, errHasRents):
		c.JSON(http.StatusConflict, gin.H{"reason": "HAS_RENTS", "error": "model is referenced by rents"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		catalog.Invalidate(c.Request.Context(), catalogKey)
		c.JSON(http.StatusOK, gin.H{"deleted": modelID})
	}
}

func registerDriver(c *gin.Context) {
	var request struct {
		Name    string               `json:"name" binding:"required"`
		Address booking.AddressInput `json:"address" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}

	addr, err := booking.EnsureAddress(db, request.Address)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	driver := models.Driver{Name: request.Name, AddressID: addr.ID}
	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&driver)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": result.Error.Error()})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusConflict, gin.H{"created": false, "error": "driver already exists"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"created": true, "name": driver.Name})
}

// deleteDriver restricts deletion while rents reference the driver, and
// cascades the driver's qualification rows otherwise.
func deleteDriver(c *gin.Context) {
	name := c.Param("name")

	err := db.Transaction(func(tx *gorm.DB) error {
		var driver models.Driver
		if err := tx.Where("name = ?", name).First(&driver).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errNotFound
			}
			return err
		}
		var rented int64
		if err := tx.Model(&models.Rent{}).Where("driver = ?", name).Count(&rented).Error; err != nil {
			return err
		}
		if rented > 0 {
			return errHasRents
		}
		if err := tx.Where("driver = ?", name).Delete(&models.Drives{}).Error; err != nil {
			return err
		}
		return tx.Delete(&driver).Error
	})

	switch {
	case errors.Is(err, errNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "driver not found"})
	case errors.Is(err, errHasRents):
		c.JSON(http.StatusConflict, gin.H{"reason": "HAS_RENTS", "error": "driver is referenced by rents"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"deleted": name})
	}
}

func updateDriverAddress(c *gin.Context) {
	name := c.Param("name")

	var request booking.AddressInput
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}

	var driver models.Driver
	if err := db.Where("name = ?", name).First(&driver).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "driver not found"})
		return
	}

	addr, err := booking.EnsureAddress(db, request)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := db.Model(&driver).Update("address_id", addr.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name, "city": addr.City})
}

func qualifyDriver(c *gin.Context) {
	name := c.Param("name")

	var request struct {
		ModelID string `json:"modelId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}

	var count int64
	if err := db.Model(&models.Driver{}).Where("name = ?", name).Count(&count).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if count == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "driver not found"})
		return
	}
	if err := db.Model(&models.Model{}).Where("model_id = ?", request.ModelID).Count(&count).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if count == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "model not found"})
		return
	}

	drives := models.Drives{Driver: name, ModelID: request.ModelID}
	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&drives)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": result.Error.Error()})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusOK, gin.H{"created": false, "error": "driver already drives this model"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"created": true, "driver": name, "modelId": request.ModelID})
}

func registerManager(c *gin.Context) {
	var request struct {
		SSN   string `json:"ssn" binding:"required"`
		Email string `json:"email" binding:"required,email"`
		Name  string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}
	if !isValidSSN(request.SSN) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ssn must be exactly 9 digits"})
		return
	}

	manager := models.Manager{SSN: request.SSN, Email: request.Email, Name: request.Name}
	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&manager)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": result.Error.Error()})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusConflict, gin.H{"created": false, "error": "manager already exists"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"created": true, "ssn": manager.SSN})
}

func getModelsRents(c *gin.Context) {
	type row struct {
		ModelID      string
		Color        string
		Year         int
		Transmission string
		RentCount    int64
	}
	var rows []row
	err := db.Table("models").
		Select("models.model_id, models.color, models.year, models.transmission, COUNT(rents.id) AS rent_count").
		Joins("LEFT JOIN rents ON models.model_id = rents.model_id").
		Group("models.model_id, models.color, models.year, models.transmission").
		Order("rent_count DESC").
		Scan(&rows).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	items := make([]gin.H, len(rows))
	for i, r := range rows {
		items[i] = gin.H{
			"modelId":      r.ModelID,
			"color":        r.Color,
			"year":         r.Year,
			"transmission": r.Transmission,
			"rentCount":    r.RentCount,
		}
	}
	c.JSON(http.StatusOK, items)
}

func getTopClients(c *gin.Context) {
	k, err := strconv.Atoi(c.DefaultQuery("k", "10"))
	if err != nil || k < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "k must be a positive integer"})
		return
	}

	type row struct {
		Email     string
		Name      string
		RentCount int64
	}
	var rows []row
	err = db.Table("clients").
		Select("clients.email, clients.name, COUNT(rents.id) AS rent_count").
		Joins("JOIN rents ON clients.email = rents.client").
		Group("clients.email, clients.name").
		Order("rent_count DESC").
		Limit(k).
		Scan(&rows).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	items := make([]gin.H, len(rows))
	for i, r := range rows {
		items[i] = gin.H{"email": r.Email, "name": r.Name, "rentCount": r.RentCount}
	}
	c.JSON(http.StatusOK, items)
}

func getDriverStats(c *gin.Context) {
	type row struct {
		Name       string
		TotalRents int64
		AvgRating  float64
	}
	var rows []row
	// Correlated subqueries so a driver with several rents and several
	// reviews is not counted across the cross product.
	err := db.Raw(`
		SELECT d.name,
		       (SELECT COUNT(*) FROM rents r WHERE r.driver = d.name) AS total_rents,
		       (SELECT COALESCE(AVG(v.rating), 0) FROM reviews v WHERE v.driver = d.name) AS avg_rating
		FROM drivers d
		ORDER BY d.name`).Scan(&rows).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	items := make([]gin.H, len(rows))
	for i, r := range rows {
		items[i] = gin.H{"name": r.Name, "totalRents": r.TotalRents, "avgRating": r.AvgRating}
	}
	c.JSON(http.StatusOK, items)
}

func getClientsByCities(c *gin.Context) {
	clientCity := c.Query("clientCity")
	driverCity := c.Query("driverCity")
	if clientCity == "" || driverCity == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "clientCity and driverCity are required"})
		return
	}

	type row struct {
		Email string
		Name  string
	}
	var rows []row
	err := db.Raw(`
		SELECT DISTINCT c.email, c.name
		FROM clients c
		JOIN client_addresses ca ON ca.client = c.email
		JOIN addresses a1 ON a1.id = ca.address_id
		JOIN rents r ON r.client = c.email
		JOIN drivers d ON d.name = r.driver
		JOIN addresses a2 ON a2.id = d.address_id
		WHERE a1.city = ? AND a2.city = ?`, clientCity, driverCity).Scan(&rows).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	items := make([]gin.H, len(rows))
	for i, r := range rows {
		items[i] = gin.H{"email": r.Email, "name": r.Name}
	}
	c.JSON(http.StatusOK, items)
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

func isValidSSN(ssn string) bool {
	if len(ssn) != 9 {
		return false
	}
	for _, r := range ssn {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
