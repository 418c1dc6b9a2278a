package engine

// BootMode decides which extension services may start.
type BootMode string

const (
	BootModeNormal   BootMode = "normal"
	BootModeCoreOnly BootMode = "core_only"
)

const (
	// DecryptStateProperty holds the device encryption state.
	DecryptStateProperty = "vold.decrypt"

	// Decrypt state while the minimal framework runs to encrypt the device.
	encryptingState = "trigger_restart_min_framework"
	// Decrypt state when the device is encrypted and still locked.
	encryptedState = "1"
)

// DetectBootMode reports CoreOnly while the device is encrypting or is
// encrypted and locked. A nil store or an unreadable property means Normal.
func DetectBootMode(props PropertyStore) BootMode {
	if props == nil {
		return BootModeNormal
	}
	state, err := props.GetProperty(DecryptStateProperty)
	if err != nil {
		return BootModeNormal
	}
	if state == encryptingState || state == encryptedState {
		return BootModeCoreOnly
	}
	return BootModeNormal
}
