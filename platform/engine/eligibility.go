package engine

import "github.com/R3E-Network/extension_server/internal/plugin"

// Evaluate returns the skip status for d, or StatusEligible when it may
// start. A missing feature is reported before the core-only restriction.
func Evaluate(d plugin.Descriptor, mode BootMode, hasFeature func(string) bool) Status {
	if hasFeature == nil || !hasFeature(d.RequiredFeature) {
		return StatusSkippedNoFeature
	}
	if mode == BootModeCoreOnly && !d.Core {
		return StatusSkippedCoreOnlyMode
	}
	return StatusEligible
}

// IsEligible reports whether d should be started.
func IsEligible(d plugin.Descriptor, mode BootMode, hasFeature func(string) bool) bool {
	return Evaluate(d, mode, hasFeature) == StatusEligible
}
