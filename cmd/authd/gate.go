package main

import (
	"context"

	"github.com/goliatone/go-featuregate/gate"
)

// configGate resolves features from the static features map in the app
// config. Unlisted features are enabled.
type configGate struct {
	flags map[string]bool
}

var _ gate.FeatureGate = (*configGate)(nil)

func newConfigGate(flags map[string]bool) *configGate {
	g := &configGate{flags: make(map[string]bool, len(flags))}
	for k, v := range flags {
		g.flags[k] = v
	}
	return g
}

func (g *configGate) Enabled(_ context.Context, key string, _ ...gate.ResolveOption) (bool, error) {
	enabled, ok := g.flags[key]
	if !ok {
		return true, nil
	}
	return enabled, nil
}
