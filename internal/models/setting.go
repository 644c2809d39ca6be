package models

import "time"

const SettingProfitMarginPercentage = "profit_margin_percentage"

type Setting struct {
	ID          int64
	Key         string
	Value       string
	Description *string
	UpdatedAt   time.Time
}
