package booking

import (
	"taxirental/pkg/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AddressInput is a postal address as entered during registration.
type AddressInput struct {
	Number string `json:"number" binding:"required"`
	Road   string `json:"road" binding:"required"`
	City   string `json:"city" binding:"required"`
}

// CardInput is a credit card plus its payment address.
type CardInput struct {
	Number         string       `json:"number" binding:"required"`
	PaymentAddress AddressInput `json:"paymentAddress" binding:"required"`
}

// RegisterClient persists a new client together with their addresses and
// credit cards as one atomic unit. A client only exists once at least one
// address and one card made it in; any shortfall or store error rolls the
// whole attempt back, leaving no partial records for the email.
func RegisterClient(db *gorm.DB, email, name string, addresses []AddressInput, cards []CardInput) error {
	if len(addresses) == 0 {
		return ErrNoAddress
	}
	if len(cards) == 0 {
		return ErrNoCreditCard
	}

	return db.Transaction(func(tx *gorm.DB) error {
		client := models.Client{Email: email, Name: name}
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&client)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrDuplicateClient
		}

		for _, in := range addresses {
			if err := LinkClientAddress(tx, email, in); err != nil {
				return err
			}
		}

		for _, in := range cards {
			addr, err := EnsureAddress(tx, in.PaymentAddress)
			if err != nil {
				return err
			}
			card := models.CreditCard{
				Number:           in.Number,
				Client:           email,
				PaymentAddressID: addr.ID,
			}
			result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&card)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				// The card number belongs to another client already;
				// that sinks the registration attempt.
				return ErrDuplicateCard
			}
		}
		return nil
	})
}

// EnsureAddress inserts the address if it is new and returns the stored
// row either way. Colliding with an existing (number, road, city) is the
// expected path for shared addresses, not a failure.
func EnsureAddress(db *gorm.DB, in AddressInput) (*models.Address, error) {
	addr := models.Address{Number: in.Number, Road: in.Road, City: in.City}
	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&addr)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		err := db.Where("number = ? AND road = ? AND city = ?", in.Number, in.Road, in.City).
			First(&addr).Error
		if err != nil {
			return nil, err
		}
	}
	return &addr, nil
}

// LinkClientAddress attaches an address to a client, creating the address
// row when needed. Linking an already linked address is a no-op.
func LinkClientAddress(db *gorm.DB, email string, in AddressInput) error {
	addr, err := EnsureAddress(db, in)
	if err != nil {
		return err
	}
	link := models.ClientAddress{Client: email, AddressID: addr.ID}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error
}

// AddCreditCard attaches a new card to an existing client outside of
// registration. Reports whether the card was actually created.
func AddCreditCard(db *gorm.DB, email string, in CardInput) (bool, error) {
	var count int64
	if err := db.Model(&models.Client{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	if count == 0 {
		return false, ErrUnknownClient
	}
	addr, err := EnsureAddress(db, in.PaymentAddress)
	if err != nil {
		return false, err
	}
	card := models.CreditCard{Number: in.Number, Client: email, PaymentAddressID: addr.ID}
	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&card)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
