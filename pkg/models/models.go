package models

import (
	"time"
)

// Address is shared between drivers, clients and credit cards and is
// deduplicated on (number, road, city).
type Address struct {
	ID        uint   `gorm:"primaryKey"`
	Number    string `gorm:"size:10;not null;uniqueIndex:idx_address"`
	Road      string `gorm:"size:80;not null;uniqueIndex:idx_address"`
	City      string `gorm:"size:80;not null;uniqueIndex:idx_address"`
	CreatedAt time.Time
}

// Car is a brand/category grouping for models.
type Car struct {
	ID        uint   `gorm:"primaryKey"`
	CarID     string `gorm:"size:8;not null;uniqueIndex"`
	Brand     string `gorm:"size:80;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Model struct {
	ID           uint   `gorm:"primaryKey"`
	ModelID      string `gorm:"size:8;not null;uniqueIndex"`
	CarID        string `gorm:"size:8;not null;index"`
	Color        string `gorm:"size:20;not null"`
	Transmission string `gorm:"size:10;not null;check:transmission IN ('manual','automatic')"`
	Year         int    `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Driver struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:80;not null;uniqueIndex"`
	AddressID uint   `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Drives records that a driver is qualified to drive a model.
type Drives struct {
	ID      uint   `gorm:"primaryKey"`
	Driver  string `gorm:"size:80;not null;uniqueIndex:idx_drives"`
	ModelID string `gorm:"size:8;not null;uniqueIndex:idx_drives"`
}

// TableName pins the table name; the struct name already reads plural.
func (Drives) TableName() string {
	return "drives"
}

type Client struct {
	ID        uint   `gorm:"primaryKey"`
	Email     string `gorm:"size:120;not null;uniqueIndex"`
	Name      string `gorm:"size:80;not null"`
	CreatedAt time.Time
}

type ClientAddress struct {
	ID        uint   `gorm:"primaryKey"`
	Client    string `gorm:"size:120;not null;uniqueIndex:idx_client_address"`
	AddressID uint   `gorm:"not null;uniqueIndex:idx_client_address"`
}

type CreditCard struct {
	ID               uint   `gorm:"primaryKey"`
	Number           string `gorm:"size:19;not null;uniqueIndex"`
	Client           string `gorm:"size:120;not null;index"`
	PaymentAddressID uint   `gorm:"not null"`
	CreatedAt        time.Time
}

// Rent is append-only. The unique (driver, date) pair is what keeps two
// bookings from assigning the same driver twice on one day.
type Rent struct {
	ID        uint   `gorm:"primaryKey"`
	RentID    string `gorm:"size:8;not null;uniqueIndex"`
	Date      string `gorm:"size:10;not null;uniqueIndex:idx_driver_date"`
	Client    string `gorm:"size:120;not null;index"`
	Driver    string `gorm:"size:80;not null;uniqueIndex:idx_driver_date"`
	ModelID   string `gorm:"size:8;not null;index"`
	CreatedAt time.Time
}

// Review holds at most one current row per (client, driver); an update
// replaces the prior message and rating.
type Review struct {
	ID        uint   `gorm:"primaryKey"`
	ReviewID  string `gorm:"size:8;not null;uniqueIndex"`
	Client    string `gorm:"size:120;not null;uniqueIndex:idx_client_driver"`
	Driver    string `gorm:"size:80;not null;uniqueIndex:idx_client_driver"`
	Message   string `gorm:"type:text"`
	Rating    int    `gorm:"not null;check:rating >= 0 AND rating <= 5"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Manager struct {
	ID        uint   `gorm:"primaryKey"`
	SSN       string `gorm:"size:9;not null;uniqueIndex"`
	Email     string `gorm:"size:120;not null"`
	Name      string `gorm:"size:80;not null"`
	CreatedAt time.Time
}

// All lists every table in the schema, in migration order.
func All() []interface{} {
	return []interface{}{
		&Address{},
		&Car{},
		&Model{},
		&Driver{},
		&Drives{},
		&Client{},
		&ClientAddress{},
		&CreditCard{},
		&Rent{},
		&Review{},
		&Manager{},
	}
}
