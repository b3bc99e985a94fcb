package models

import "time"

// VehicleToken 按车辆存储的认证令牌
// 每个 vehicle_id 只保留一条记录，重复授权会覆盖旧令牌
type VehicleToken struct {
	ID           int64     `json:"id" db:"id"`
	VehicleID    string    `json:"vehicle_id" db:"vehicle_id"`
	AccessToken  string    `json:"access_token" db:"access_token"`
	RefreshToken string    `json:"refresh_token" db:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
