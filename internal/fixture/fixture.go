// Package fixture holds the sample catalog and the demo accounts.
package fixture

import (
	"github.com/fjod/go_shop/internal/domain"
	"github.com/shopspring/decimal"
)

// DemoPassword is the password of every demo account.
const DemoPassword = "123456"

type DemoUser struct {
	Name  string
	Email string
	Role  domain.Role
}

var DemoUsers = []DemoUser{
	{Name: "John Doe", Email: "john@example.com", Role: domain.RoleUser},
	{Name: "Admin User", Email: "admin@example.com", Role: domain.RoleAdmin},
}

// Products returns a fresh copy of the sample catalog.
func Products() []domain.Product {
	return []domain.Product{
		{
			Name:        "Wireless Bluetooth Headphones",
			Description: "High-quality wireless headphones with noise cancellation and 30-hour battery life.",
			Price:       decimal.RequireFromString("99.99"),
			Image:       "https://via.placeholder.com/300x300/4A90E2/FFFFFF?text=Headphones",
			Category:    domain.CategoryElectronics,
			Stock:       50,
		},
		{
			Name:        "Smartphone Case",
			Description: "Durable protective case for smartphones with shock absorption and wireless charging compatibility.",
			Price:       decimal.RequireFromString("24.99"),
			Image:       "https://via.placeholder.com/300x300/50C878/FFFFFF?text=Phone+Case",
			Category:    domain.CategoryAccessories,
			Stock:       100,
		},
		{
			Name:        "Laptop Stand",
			Description: "Adjustable aluminum laptop stand for better ergonomics and cooling.",
			Price:       decimal.RequireFromString("49.99"),
			Image:       "https://via.placeholder.com/300x300/FF6B6B/FFFFFF?text=Laptop+Stand",
			Category:    domain.CategoryOffice,
			Stock:       30,
		},
		{
			Name:        "Wireless Mouse",
			Description: "Ergonomic wireless mouse with precision tracking and long battery life.",
			Price:       decimal.RequireFromString("34.99"),
			Image:       "https://via.placeholder.com/300x300/A8E6CF/FFFFFF?text=Mouse",
			Category:    domain.CategoryElectronics,
			Stock:       75,
		},
		{
			Name:        "USB-C Cable",
			Description: "Fast charging USB-C cable with data transfer capability, 6ft length.",
			Price:       decimal.RequireFromString("14.99"),
			Image:       "https://via.placeholder.com/300x300/FFD93D/FFFFFF?text=USB+Cable",
			Category:    domain.CategoryAccessories,
			Stock:       200,
		},
		{
			Name:        "Desk Organizer",
			Description: "Multi-compartment desk organizer to keep your workspace tidy and efficient.",
			Price:       decimal.RequireFromString("39.99"),
			Image:       "https://via.placeholder.com/300x300/B19CD9/FFFFFF?text=Organizer",
			Category:    domain.CategoryOffice,
			Stock:       45,
		},
	}
}
