package featureflags

import (
	"context"

	"github.com/willianpedrom/saude-essencial-backend-sub000/pkg/config"

	flagsmith "github.com/Flagsmith/flagsmith-go-client/v2"
	"go.uber.org/fx"
)

var Module = fx.Module("featureflags", fx.Provide(ProvideFeatureFlag))

// FeatureFlag exposes the platform-wide kill switches consulted before
// plan-level feature checks. A disabled flag denies the feature for every
// plan; an absent client disables nothing.
type FeatureFlag interface {
	Enabled(ctx context.Context, feature string) bool
}

type featureflag struct {
	client *flagsmith.Client
}

type FeatureParams struct {
	fx.In
	Config *config.Config
}

func ProvideFeatureFlag(p FeatureParams) FeatureFlag {
	if p.Config.Flagsmith.ApiKey == "" {
		return &featureflag{}
	}

	opts := []flagsmith.Option{
		flagsmith.WithBaseURL(p.Config.Flagsmith.Addr),
		flagsmith.WithAnalytics(),
	}

	return &featureflag{
		client: flagsmith.NewClient(p.Config.Flagsmith.ApiKey, opts...),
	}
}

func (s *featureflag) Enabled(ctx context.Context, feature string) bool {
	if s.client == nil {
		return true
	}

	flags, err := s.client.GetEnvironmentFlags()
	if err != nil {
		// Flag service outage must never take paid features down with it.
		return true
	}

	enabled, err := flags.IsFeatureEnabled(feature)
	if err != nil {
		return true
	}

	return enabled
}
