package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"taxirental/pkg/circuitbreaker"
	"taxirental/pkg/queue"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// unreachableURL points at a port nothing listens on, so requests fail fast
// with a connection refused instead of timing out.
const unreachableURL = "http://127.0.0.1:1"

func setupGateway() {
	gin.SetMode(gin.TestMode)
	httpClient = &http.Client{Timeout: 2 * time.Second}
	fleetBreaker = circuitbreaker.New(5, 30*time.Second)
	rentalBreaker = circuitbreaker.New(5, 30*time.Second)
	reviewBreaker = circuitbreaker.New(5, 30*time.Second)
	reviewQueue = queue.New()
	fleetServiceURL = unreachableURL
	rentalServiceURL = unreachableURL
	reviewServiceURL = unreachableURL
}

func TestForwardPassesThroughBackendResponse(t *testing.T) {
	setupGateway()
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"rentId":"REN00001","driver":"Alice"}`))
	}))
	defer backend.Close()
	rentalServiceURL = backend.URL

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/api/v1/rents", bytes.NewBufferString(`{"date":"2024-06-01","modelId":"MOD00001"}`))
	c.Request.Header.Set("X-User-Email", "kim@example.com")

	forwardRental(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, "REN00001", response["rentId"])
}

func TestForwardRelaysQueryAndIdentity(t *testing.T) {
	setupGateway()
	var gotQuery, gotEmail string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotEmail = r.Header.Get("X-User-Email")
		w.Write([]byte(`[]`))
	}))
	defer backend.Close()
	rentalServiceURL = backend.URL

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/api/v1/models/available?date=2024-06-01", nil)
	c.Request.Header.Set("X-User-Email", "kim@example.com")

	forwardRental(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "date=2024-06-01", gotQuery)
	assert.Equal(t, "kim@example.com", gotEmail)
}

func TestForwardUnreachableBackend(t *testing.T) {
	setupGateway()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/api/v1/models", nil)

	forwardFleet(c)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestForwardOpenBreakerShortCircuits(t *testing.T) {
	setupGateway()
	fleetBreaker = circuitbreaker.New(1, time.Minute)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/api/v1/models", nil)
	forwardFleet(c)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/api/v1/models", nil)
	forwardFleet(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSubmitReviewQueuedWhenServiceDown(t *testing.T) {
	setupGateway()

	body, _ := json.Marshal(map[string]interface{}{
		"driver": "Alice", "message": "smooth ride", "rating": 4,
	})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/api/v1/reviews", bytes.NewBuffer(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Request.Header.Set("X-User-Email", "kim@example.com")

	submitReviewHandler(c)

	assert.Equal(t, http.StatusAccepted, w.Code)
	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, "QUEUED", response["status"])
	assert.Equal(t, 1, reviewQueue.Size())
}

func TestSubmitReviewPassesThroughWhenServiceUp(t *testing.T) {
	setupGateway()
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"reviewId":"REV00001"}`))
	}))
	defer backend.Close()
	reviewServiceURL = backend.URL

	body, _ := json.Marshal(map[string]interface{}{
		"driver": "Alice", "message": "smooth ride", "rating": 4,
	})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/api/v1/reviews", bytes.NewBuffer(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Request.Header.Set("X-User-Email", "kim@example.com")

	submitReviewHandler(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 0, reviewQueue.Size())
}

func TestSubmitReviewRejectsBadRatingBeforeForwarding(t *testing.T) {
	setupGateway()

	body, _ := json.Marshal(map[string]interface{}{
		"driver": "Alice", "message": "too good", "rating": 6,
	})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/api/v1/reviews", bytes.NewBuffer(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Request.Header.Set("X-User-Email", "kim@example.com")

	submitReviewHandler(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, reviewQueue.Size())
}

func TestHealthCheckReportsDegraded(t *testing.T) {
	setupGateway()
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"UP"}`))
	}))
	defer backend.Close()
	fleetServiceURL = backend.URL

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/manage/health", nil)

	healthCheck(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, "DEGRADED", response["status"])
	services := response["services"].(map[string]interface{})
	assert.Equal(t, "UP", services["fleet"])
	assert.Equal(t, "DOWN", services["rental"])
	assert.Equal(t, "DOWN", services["review"])
}
