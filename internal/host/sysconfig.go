package host

// StaticSystemConfig is the system configuration loaded at process start.
type StaticSystemConfig struct {
	allowInPowerSave []string
}

// NewStaticSystemConfig creates a system configuration.
func NewStaticSystemConfig(allowInPowerSave []string) *StaticSystemConfig {
	return &StaticSystemConfig{allowInPowerSave: append([]string(nil), allowInPowerSave...)}
}

// AllowInPowerSave returns the packages allowed to run in power save.
func (c *StaticSystemConfig) AllowInPowerSave() []string {
	return append([]string(nil), c.allowInPowerSave...)
}
