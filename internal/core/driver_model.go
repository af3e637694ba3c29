package core

import "time"

// Driver delivers logical orders. Order lines reference drivers weakly (ON DELETE SET NULL).
type Driver struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Phone          string    `json:"phone"`
	VehicleNumber  string    `json:"vehicle_number"`
	Address        string    `json:"address"`
	AreaID         string    `json:"area_id,omitempty"`
	AreaName       string    `json:"area_name,omitempty"`
	SubArea        string    `json:"sub_area"`
	TelegramChatID *int64    `json:"telegram_chat_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// DriverInput holds the fields required to create a driver.
type DriverInput struct {
	Name           string `json:"name" validate:"required"`
	Phone          string `json:"phone" validate:"required"`
	VehicleNumber  string `json:"vehicle_number"`
	Address        string `json:"address"`
	AreaID         string `json:"area_id" validate:"omitempty,uuid"`
	SubArea        string `json:"sub_area"`
	TelegramChatID *int64 `json:"telegram_chat_id"`
}
