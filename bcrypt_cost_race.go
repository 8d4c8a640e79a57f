//go:build race

package auth

func passwordHashCost() int {
	// Reduce cost for race-enabled builds so test suites can run with strict timeouts.
	return MinPasswordHashCost
}
