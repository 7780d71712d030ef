package memory

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"rentacar-backend/internal/domain"
)

type fixtureFile struct {
	Vehicles []struct {
		ID           string `yaml:"id"`
		Make         string `yaml:"make"`
		Model        string `yaml:"model"`
		LicensePlate string `yaml:"license_plate"`
		DailyPrice   string `yaml:"daily_price"`
		Status       string `yaml:"status"`
	} `yaml:"vehicles"`
	Customers []struct {
		ID    string `yaml:"id"`
		Name  string `yaml:"name"`
		Email string `yaml:"email"`
		Phone string `yaml:"phone"`
	} `yaml:"customers"`
}

// LoadFixtures seeds vehicles and customers from a YAML file.
func (s *Store) LoadFixtures(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read fixtures file: %w", err)
	}

	var f fixtureFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse fixtures file: %w", err)
	}

	for _, v := range f.Vehicles {
		price, err := decimal.NewFromString(v.DailyPrice)
		if err != nil {
			return fmt.Errorf("vehicle %s: invalid daily_price %q: %w", v.ID, v.DailyPrice, err)
		}
		status := domain.VehicleStatus(v.Status)
		if status == "" {
			status = domain.VehicleStatusAvailable
		}
		s.PutVehicle(domain.Vehicle{
			ID:           v.ID,
			Make:         v.Make,
			Model:        v.Model,
			LicensePlate: v.LicensePlate,
			DailyPrice:   price,
			Status:       status,
			IsAvailable:  status == domain.VehicleStatusAvailable,
		})
	}
	for _, c := range f.Customers {
		s.PutCustomer(domain.Customer{ID: c.ID, Name: c.Name, Email: c.Email, Phone: c.Phone})
	}
	return nil
}
