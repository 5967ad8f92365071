package plan

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Plan is a priced bundle of usage limits and feature flags a tenant can
// subscribe to. Slug is the immutable identity; gateways reference plans
// through ExternalOfferID.
type Plan struct {
	Slug            string         `gorm:"column:slug;primaryKey" json:"slug"`
	Name            string         `gorm:"column:name" json:"name"`
	PriceCents      int64          `gorm:"column:price_cents" json:"price_cents"`
	Currency        string         `gorm:"column:currency;default:'BRL'" json:"currency"`
	Limits          datatypes.JSON `gorm:"column:limits" json:"limits"`
	Features        datatypes.JSON `gorm:"column:features" json:"features"`
	ExternalOfferID string         `gorm:"column:external_offer_id;index" json:"external_offer_id"`
	Active          bool           `gorm:"column:active;default:true" json:"active"`
	CreatedAt       time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"column:updated_at" json:"updated_at"`
}

// Limits that plans constrain. Zero means unlimited.
type PlanLimits struct {
	MaxClients     int `json:"max_clients"`
	MaxIntakeForms int `json:"max_intake_forms"`
}

func (m *Plan) LimitSet() PlanLimits {
	var limits PlanLimits
	if len(m.Limits) > 0 {
		_ = json.Unmarshal(m.Limits, &limits)
	}
	return limits
}

func (m *Plan) FeatureSet() []string {
	var features []string
	if len(m.Features) > 0 {
		_ = json.Unmarshal(m.Features, &features)
	}
	return features
}

func (m *Plan) HasFeature(name string) bool {
	for _, f := range m.FeatureSet() {
		if f == name {
			return true
		}
	}
	return false
}
