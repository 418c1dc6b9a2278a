// Package plugin provides the registration table for extension services.
// Every extension service is compiled into the binary and registers its
// factory from an init() function; the engine resolves the configured
// identifiers against this table at boot.
package plugin

import (
	"errors"
	"fmt"

	"github.com/R3E-Network/extension_server/services/base"
)

var (
	ErrUnknownService      = errors.New("service not registered")
	ErrMalformedDescriptor = errors.New("malformed service registration")
)

// ServiceInfo contains static information about a registered service.
type ServiceInfo struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`

	// Feature is the device feature that must be declared for the service to start.
	Feature string `json:"feature" yaml:"feature"`

	// Core marks services allowed to start while only core apps may run.
	Core bool `json:"core" yaml:"core"`
}

// Descriptor is the resolved, immutable view of one registration.
type Descriptor struct {
	ID              string
	RequiredFeature string
	Core            bool
	Handle          base.Handle
}

// ResolutionError reports an identifier that could not be mapped to a
// descriptor.
type ResolutionError struct {
	ID  string
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve service %q: %v", e.ID, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }
