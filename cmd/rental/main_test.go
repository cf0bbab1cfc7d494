package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"taxirental/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB() *gorm.DB {
	testDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		panic("failed to connect test database")
	}
	testDB.AutoMigrate(models.All()...)
	return testDB
}

func seedBookable(testDB *gorm.DB) {
	testDB.Create(&models.Car{CarID: "CAR00001", Brand: "Toyota"})
	testDB.Create(&models.Model{ModelID: "MOD00001", CarID: "CAR00001", Color: "red", Transmission: "manual", Year: 2020})
	testDB.Create(&models.Address{Number: "12", Road: "Main St", City: "Chicago"})
	testDB.Create(&models.Driver{Name: "Alice", AddressID: 1})
	testDB.Create(&models.Drives{Driver: "Alice", ModelID: "MOD00001"})
	testDB.Create(&models.Client{Email: "kim@example.com", Name: "Kim"})
}

func jsonRequest(method, url string, body interface{}) *http.Request {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(method, url, bytes.NewBuffer(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestRegisterClientEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db = setupTestDB()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest("POST", "/api/v1/clients", map[string]interface{}{
		"email": "kim@example.com",
		"name":  "Kim",
		"addresses": []map[string]string{
			{"number": "12", "road": "Main St", "city": "Chicago"},
		},
		"cards": []map[string]interface{}{
			{"number": "4111111111111111", "paymentAddress": map[string]string{"number": "12", "road": "Main St", "city": "Chicago"}},
		},
	})

	registerClient(c)

	assert.Equal(t, http.StatusCreated, w.Code)

	var client models.Client
	assert.NoError(t, db.Where("email = ?", "kim@example.com").First(&client).Error)
}

func TestRegisterClientEndpointWithoutCardPersistsNothing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db = setupTestDB()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest("POST", "/api/v1/clients", map[string]interface{}{
		"email": "kim@example.com",
		"name":  "Kim",
		"addresses": []map[string]string{
			{"number": "12", "road": "Main St", "city": "Chicago"},
		},
	})

	registerClient(c)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var clients, addresses int64
	db.Model(&models.Client{}).Count(&clients)
	db.Model(&models.Address{}).Count(&addresses)
	assert.Equal(t, int64(0), clients)
	assert.Equal(t, int64(0), addresses)
}

func TestGetAvailableModelsRejectsBadDate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db = setupTestDB()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/api/v1/models/available?date=01-02-2024", nil)

	getAvailableModels(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetAvailableModelsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db = setupTestDB()
	seedBookable(db)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/api/v1/models/available?date=2024-01-01", nil)

	getAvailableModels(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var response struct {
		Date  string `json:"date"`
		Items []struct {
			ModelID string `json:"modelId"`
		} `json:"items"`
	}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Len(t, response.Items, 1)
	assert.Equal(t, "MOD00001", response.Items[0].ModelID)
}

func TestCreateRentEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db = setupTestDB()
	seedBookable(db)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest("POST", "/api/v1/rents", map[string]string{
		"date":    "2024-01-01",
		"modelId": "MOD00001",
	})
	c.Request.Header.Set("X-User-Email", "kim@example.com")

	createRent(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, "REN00001", response["rentId"])
	assert.Equal(t, "Alice", response["driver"])
}

func TestCreateRentNoAvailableDriver(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db = setupTestDB()
	seedBookable(db)
	db.Create(&models.Rent{RentID: "REN00001", Date: "2024-01-01", Client: "kim@example.com", Driver: "Alice", ModelID: "MOD00001"})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest("POST", "/api/v1/rents", map[string]string{
		"date":    "2024-01-01",
		"modelId": "MOD00001",
	})
	c.Request.Header.Set("X-User-Email", "kim@example.com")

	createRent(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, "NO_AVAILABLE_DRIVER", response["reason"])
}

func TestCreateRentMissingHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db = setupTestDB()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest("POST", "/api/v1/rents", map[string]string{
		"date":    "2024-01-01",
		"modelId": "MOD00001",
	})

	createRent(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetClientRentsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db = setupTestDB()
	seedBookable(db)
	db.Create(&models.Rent{RentID: "REN00001", Date: "2024-01-01", Client: "kim@example.com", Driver: "Alice", ModelID: "MOD00001"})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/api/v1/rents", nil)
	c.Request.Header.Set("X-User-Email", "kim@example.com")

	getClientRents(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var response []map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Len(t, response, 1)
	assert.Equal(t, "REN00001", response[0]["rentId"])
	assert.Equal(t, "red", response[0]["color"])
}

func TestAddClientCardEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db = setupTestDB()
	seedBookable(db)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "email", Value: "kim@example.com"}}
	c.Request = jsonRequest("POST", "/api/v1/clients/kim@example.com/cards", map[string]interface{}{
		"number":         "4111111111111111",
		"paymentAddress": map[string]string{"number": "12", "road": "Main St", "city": "Chicago"},
	})

	addClientCard(c)

	assert.Equal(t, http.StatusCreated, w.Code)
}
