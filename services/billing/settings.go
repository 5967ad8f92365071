package billing

import (
	"context"
	"errors"
	"time"

	"github.com/willianpedrom/saude-essencial-backend-sub000/pkg/config"
	"github.com/willianpedrom/saude-essencial-backend-sub000/pkg/errutil"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GatewaySettings is the admin-editable single-row table holding webhook
// credentials and the checkout entry point. Config values seed the row on
// first read.
type GatewaySettings struct {
	ID                  int       `gorm:"column:id;primaryKey" json:"-"`
	StripeWebhookSecret string    `gorm:"column:stripe_webhook_secret" json:"stripe_webhook_secret"`
	HotmartToken        string    `gorm:"column:hotmart_token" json:"hotmart_token"`
	HotmartProductID    string    `gorm:"column:hotmart_product_id" json:"hotmart_product_id"`
	CheckoutURL         string    `gorm:"column:checkout_url" json:"checkout_url"`
	UpdatedAt           time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (GatewaySettings) TableName() string {
	return "gateway_settings"
}

const settingsRowID = 1

// Settings reads the row, bootstrapping it from config defaults when absent.
func (s *Service) Settings(ctx context.Context) (*GatewaySettings, error) {
	var record GatewaySettings
	err := s.db.WithContext(ctx).First(&record, "id = ?", settingsRowID).Error
	if err == nil {
		return &record, nil
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		zap.L().Error("failed to read gateway settings", zap.Error(err))
		return nil, errutil.Internal("failed to read gateway settings", err)
	}

	record = defaultSettings(s.config)
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		zap.L().Error("failed to bootstrap gateway settings", zap.Error(err))
		return nil, errutil.Internal("failed to bootstrap gateway settings", err)
	}

	return &record, nil
}

// UpdateSettings overwrites the admin-editable fields.
func (s *Service) UpdateSettings(ctx context.Context, in *GatewaySettings) (*GatewaySettings, error) {
	if _, err := s.Settings(ctx); err != nil {
		return nil, err
	}

	values := map[string]any{
		"stripe_webhook_secret": in.StripeWebhookSecret,
		"hotmart_token":         in.HotmartToken,
		"hotmart_product_id":    in.HotmartProductID,
		"checkout_url":          in.CheckoutURL,
		"updated_at":            time.Now(),
	}

	if err := s.db.WithContext(ctx).Model(&GatewaySettings{}).Where("id = ?", settingsRowID).Updates(values).Error; err != nil {
		zap.L().Error("failed to update gateway settings", zap.Error(err))
		return nil, errutil.Internal("failed to update gateway settings", err)
	}

	return s.Settings(ctx)
}

func defaultSettings(cfg *config.Config) GatewaySettings {
	return GatewaySettings{
		ID:                  settingsRowID,
		StripeWebhookSecret: cfg.Billing.StripeWebhookSecret,
		HotmartToken:        cfg.Billing.HotmartToken,
		HotmartProductID:    cfg.Billing.HotmartProductID,
		CheckoutURL:         cfg.Billing.CheckoutURL,
		UpdatedAt:           time.Now(),
	}
}
