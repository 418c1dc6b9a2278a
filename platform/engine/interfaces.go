package engine

import (
	"context"

	"github.com/R3E-Network/extension_server/internal/plugin"
	"github.com/R3E-Network/extension_server/services/base"
)

// Runner is the single externally triggered boot entry point.
type Runner interface {
	Run(ctx context.Context) (*Report, error)
}

// Resolver maps a configured service identifier to its descriptor.
type Resolver interface {
	Resolve(id string) (plugin.Descriptor, error)
}

// HostRegistry instantiates and starts a service from its handle. The
// started service's lifecycle belongs to the registry from then on.
type HostRegistry interface {
	StartService(ctx context.Context, h base.Handle) error
}

// FeatureQuery reports device feature declarations.
type FeatureQuery interface {
	HasFeature(name string) bool
}

// PropertyStore reads system properties.
type PropertyStore interface {
	GetProperty(name string) (string, error)
}

// BackupManager toggles the backup service for a user.
type BackupManager interface {
	SetBackupServiceActive(ctx context.Context, userID int, active bool) error
}

// AllowList is the power-management allow list.
type AllowList interface {
	IsExempt(ctx context.Context, pkg string) (bool, error)
	AddExemption(ctx context.Context, pkg string) error
}

// SystemConfig supplies system-wide package configuration.
type SystemConfig interface {
	AllowInPowerSave() []string
}
