package domain

import "github.com/shopspring/decimal"

type VehicleStatus string

const (
	VehicleStatusAvailable   VehicleStatus = "AVAILABLE"
	VehicleStatusRented      VehicleStatus = "RENTED"
	VehicleStatusMaintenance VehicleStatus = "MAINTENANCE"
	VehicleStatusDamaged     VehicleStatus = "DAMAGED"
	VehicleStatusRetired     VehicleStatus = "RETIRED"
)

// Vehicle is owned by the inventory system; only DailyPrice, IsAvailable and
// Status are read or written here.
type Vehicle struct {
	ID           string          `json:"id"`
	Make         string          `json:"make"`
	Model        string          `json:"model"`
	LicensePlate string          `json:"license_plate"`
	DailyPrice   decimal.Decimal `json:"daily_price"`
	IsAvailable  bool            `json:"is_available"`
	Status       VehicleStatus   `json:"status"`
}

// MarkRented and MarkAvailable keep the flag and the status in step.
func (v *Vehicle) MarkRented() {
	v.Status = VehicleStatusRented
	v.IsAvailable = false
}

func (v *Vehicle) MarkAvailable() {
	v.Status = VehicleStatusAvailable
	v.IsAvailable = true
}
