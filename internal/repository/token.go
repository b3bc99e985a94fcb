package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/langchou/carlink/internal/models"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("record not found")

// TokenRepository 车辆令牌数据仓库
type TokenRepository struct {
	db *DB
}

// NewTokenRepository 创建令牌仓库
func NewTokenRepository(db *DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Upsert 创建或更新车辆令牌（按 vehicle_id 覆盖）
func (r *TokenRepository) Upsert(ctx context.Context, token *models.VehicleToken) error {
	query := `
		INSERT INTO vehicle_tokens (vehicle_id, access_token, refresh_token, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (vehicle_id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`
	now := time.Now()
	err := r.db.Pool.QueryRow(ctx, query,
		token.VehicleID,
		token.AccessToken,
		token.RefreshToken,
		token.ExpiresAt,
		now,
		now,
	).Scan(&token.ID, &token.CreatedAt)

	if err != nil {
		return fmt.Errorf("upsert vehicle token: %w", err)
	}

	token.UpdatedAt = now
	return nil
}

// GetByVehicleID 通过车辆 ID 获取令牌
func (r *TokenRepository) GetByVehicleID(ctx context.Context, vehicleID string) (*models.VehicleToken, error) {
	query := `
		SELECT id, vehicle_id, access_token, refresh_token, expires_at, created_at, updated_at
		FROM vehicle_tokens WHERE vehicle_id = $1
	`
	token := &models.VehicleToken{}
	err := r.db.Pool.QueryRow(ctx, query, vehicleID).Scan(
		&token.ID,
		&token.VehicleID,
		&token.AccessToken,
		&token.RefreshToken,
		&token.ExpiresAt,
		&token.CreatedAt,
		&token.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get token by vehicle_id: %w", err)
	}
	return token, nil
}

// UpdateTokens 更新指定车辆的令牌
func (r *TokenRepository) UpdateTokens(ctx context.Context, vehicleID, accessToken, refreshToken string, expiresAt time.Time) error {
	query := `
		UPDATE vehicle_tokens
		SET access_token = $1, refresh_token = $2, expires_at = $3, updated_at = $4
		WHERE vehicle_id = $5
	`
	tag, err := r.db.Pool.Exec(ctx, query,
		accessToken,
		refreshToken,
		expiresAt,
		time.Now(),
		vehicleID,
	)
	if err != nil {
		return fmt.Errorf("update vehicle token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
