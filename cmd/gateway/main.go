package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"taxirental/pkg/circuitbreaker"
	"taxirental/pkg/middleware"
	"taxirental/pkg/queue"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fleetServiceURL  string
	rentalServiceURL string
	reviewServiceURL string
	httpClient       *http.Client

	fleetBreaker  *circuitbreaker.Breaker
	rentalBreaker *circuitbreaker.Breaker
	reviewBreaker *circuitbreaker.Breaker

	reviewQueue *queue.Queue
)

const retryBaseDelay = 5 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment as-is")
	}

	fleetServiceURL = getEnv("FLEET_SERVICE_URL", "http://localhost:8060")
	rentalServiceURL = getEnv("RENTAL_SERVICE_URL", "http://localhost:8070")
	reviewServiceURL = getEnv("REVIEW_SERVICE_URL", "http://localhost:8050")

	httpClient = &http.Client{
		Timeout: 10 * time.Second,
	}

	fleetBreaker = circuitbreaker.New(5, 30*time.Second)
	rentalBreaker = circuitbreaker.New(5, 30*time.Second)
	reviewBreaker = circuitbreaker.New(5, 30*time.Second)

	reviewQueue = queue.New()
	go retryPendingReviews()

	r := gin.Default()
	r.Use(cors.Default())
	r.Use(middleware.RequestID())
	r.Use(middleware.Metrics("gateway"))

	r.GET("/api/v1/models", forwardFleet)
	r.POST("/api/v1/cars", forwardFleet)
	r.DELETE("/api/v1/cars/:carId", forwardFleet)
	r.POST("/api/v1/models", forwardFleet)
	r.DELETE("/api/v1/models/:modelId", forwardFleet)
	r.POST("/api/v1/drivers", forwardFleet)
	r.DELETE("/api/v1/drivers/:name", forwardFleet)
	r.PUT("/api/v1/drivers/:name/address", forwardFleet)
	r.POST("/api/v1/drivers/:name/qualifications", forwardFleet)
	r.POST("/api/v1/managers", forwardFleet)
	r.GET("/api/v1/reports/models-rents", forwardFleet)
	r.GET("/api/v1/reports/top-clients", forwardFleet)
	r.GET("/api/v1/reports/driver-stats", forwardFleet)
	r.GET("/api/v1/reports/clients-by-cities", forwardFleet)

	r.POST("/api/v1/clients", forwardRental)
	r.POST("/api/v1/clients/:email/addresses", forwardRental)
	r.POST("/api/v1/clients/:email/cards", forwardRental)
	r.GET("/api/v1/models/available", forwardRental)
	r.POST("/api/v1/rents", forwardRental)
	r.GET("/api/v1/rents", forwardRental)

	r.GET("/api/v1/reviews", forwardReview)
	r.GET("/api/v1/reviews/driver/:name", forwardReview)
	r.POST("/api/v1/reviews", submitReviewHandler)

	r.GET("/manage/health", healthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	log.Println("Gateway service starting on port 8080")
	r.Run(":8080")
}

func forwardFleet(c *gin.Context) {
	forward(c, fleetBreaker, fleetServiceURL)
}

func forwardRental(c *gin.Context) {
	forward(c, rentalBreaker, rentalServiceURL)
}

func forwardReview(c *gin.Context) {
	forward(c, reviewBreaker, reviewServiceURL)
}

// forward relays the request to a backend service through its breaker.
// Backend HTTP statuses pass through untouched; only transport failures
// count against the breaker.
func forward(c *gin.Context, breaker *circuitbreaker.Breaker, baseURL string) {
	target := baseURL + c.Request.URL.Path
	if q := c.Request.URL.RawQuery; q != "" {
		target += "?" + q
	}

	var body []byte
	if c.Request.Body != nil {
		body, _ = io.ReadAll(c.Request.Body)
	}

	var status int
	var data []byte
	err := breaker.Do(func() error {
		req, err := http.NewRequest(c.Request.Method, target, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", c.GetHeader("Content-Type"))
		if email := c.GetHeader("X-User-Email"); email != "" {
			req.Header.Set("X-User-Email", email)
		}
		if id := c.Writer.Header().Get(middleware.RequestIDHeader); id != "" {
			req.Header.Set(middleware.RequestIDHeader, id)
		}
		resp, err := httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		data, err = io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		status = resp.StatusCode
		return nil
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service temporarily unavailable"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to reach backend service"})
		return
	}
	c.Data(status, "application/json", data)
}

// submitReviewHandler tries the review service directly and falls back to
// the retry queue when it cannot be reached. Queueing is safe here because
// a review submission is an idempotent upsert; bookings get no such
// fallback and fail loud instead.
func submitReviewHandler(c *gin.Context) {
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

	status, data, err := postReview(email, request.Driver, request.Message, request.Rating)
	if err != nil {
		reviewQueue.Add(email, request.Driver, request.Message, request.Rating, retryBaseDelay)
		c.JSON(http.StatusAccepted, gin.H{
			"status": "QUEUED",
			"detail": "review service unavailable, submission will be retried",
		})
		return
	}
	c.Data(status, "application/json", data)
}

func postReview(client, driver, message string, rating int) (int, []byte, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"driver":  driver,
		"message": message,
		"rating":  rating,
	})
	if err != nil {
		return 0, nil, err
	}

	var status int
	var data []byte
	err = reviewBreaker.Do(func() error {
		req, err := http.NewRequest("POST", reviewServiceURL+"/api/v1/reviews", bytes.NewBuffer(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-User-Email", client)
		resp, err := httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		data, err = io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		status = resp.StatusCode
		return nil
	})
	return status, data, err
}

// retryPendingReviews drains the review retry queue in the background.
func retryPendingReviews() {
	for {
		time.Sleep(time.Second)
		item := reviewQueue.Due()
		if item == nil {
			continue
		}
		_, _, err := postReview(item.Client, item.Driver, item.Message, item.Rating)
		if err != nil {
			if !reviewQueue.Requeue(item, retryBaseDelay) {
				log.Printf("Dropping queued review %s for %s after %d attempts", item.ID, item.Driver, item.Attempts)
			}
			continue
		}
		log.Printf("Queued review %s for %s delivered", item.ID, item.Driver)
	}
}

func healthCheck(c *gin.Context) {
	services := map[string]string{
		"fleet":  fleetServiceURL,
		"rental": rentalServiceURL,
		"review": reviewServiceURL,
	}

	status := "UP"
	details := gin.H{}
	for name, base := range services {
		if pingService(base) {
			details[name] = "UP"
		} else {
			details[name] = "DOWN"
			status = "DEGRADED"
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": status, "services": details})
}

func pingService(baseURL string) bool {
	resp, err := httpClient.Get(baseURL + "/manage/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
