package auth

import (
	"context"

	"github.com/goliatone/go-featuregate/gate"
	"github.com/goliatone/go-featuregate/gate/guard"
)

// normalizeFeatureGateError keeps taxonomy errors and reports any other gate
// backend failure as a retryable outage.
func normalizeFeatureGateError(err error) error {
	if err == nil {
		return nil
	}

	if isTaxonomyError(err) {
		return err
	}

	return WrapAs(ErrTemporaryFailure, "").
		WithMetadata(map[string]any{"cause": "feature gate check failed: " + err.Error()})
}

func requireFeatureGate(ctx context.Context, featureGate gate.FeatureGate, key string, disabledErr error) error {
	if featureGate == nil {
		return nil
	}
	return guard.Require(ctx, featureGate, key,
		guard.WithDisabledError(disabledErr),
		guard.WithErrorMapper(normalizeFeatureGateError),
	)
}

// requirePasswordResetGate checks users.password_reset. When allowFinalize is
// set, users.password_reset.finalize can keep links already sent working.
func requirePasswordResetGate(ctx context.Context, featureGate gate.FeatureGate, allowFinalize bool) error {
	if featureGate == nil {
		return nil
	}

	opts := []guard.Option{
		guard.WithDisabledError(ErrPasswordResetDisabled),
		guard.WithErrorMapper(normalizeFeatureGateError),
	}
	if allowFinalize {
		opts = append(opts, guard.WithOverrides(gate.FeatureUsersPasswordResetFinalize))
	}
	return guard.Require(ctx, featureGate, gate.FeatureUsersPasswordReset, opts...)
}
