// Package booking is the decision core of the rental system: availability
// search, the booking transaction, the review gate and client registration.
// Every function takes the store handle as a parameter and reports outcomes
// as values; rendering and prompting belong to the callers.
package booking

import "errors"

var (
	ErrNoAvailableDriver = errors.New("no qualified driver is free on this date")
	ErrDuplicateRentID   = errors.New("rent id already used")
	ErrUnknownClient     = errors.New("client does not exist")
	ErrUnknownModel      = errors.New("model does not exist")
	ErrNoPriorRent       = errors.New("no rent links this client and driver")
	ErrRatingOutOfRange  = errors.New("rating must be between 0 and 5")
	ErrDuplicateClient   = errors.New("client already registered")
	ErrDuplicateCard     = errors.New("credit card already registered")
	ErrNoAddress         = errors.New("registration needs at least one address")
	ErrNoCreditCard      = errors.New("registration needs at least one credit card")
)

// ModelSummary is one row of an availability or catalog listing.
type ModelSummary struct {
	ModelID      string `json:"modelId"`
	CarID        string `json:"carId"`
	Color        string `json:"color"`
	Transmission string `json:"transmission"`
	Year         int    `json:"year"`
}
