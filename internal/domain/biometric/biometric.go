// Package biometric defines the platform biometric capability contract.
// Hardware prompts (fingerprint, face) are implemented per platform and
// injected once at startup.
package biometric

import "context"

// Authenticator is the capability interface resolved at startup.
type Authenticator interface {
	// Available reports whether the platform has a usable biometric
	// authenticator.
	Available(ctx context.Context) bool

	// Authenticate prompts the user and reports success. The reason string
	// is shown in the platform prompt.
	Authenticate(ctx context.Context, reason string) (bool, error)
}

// Unavailable is the fallback for platforms without biometric hardware.
type Unavailable struct{}

func (Unavailable) Available(ctx context.Context) bool { return false }

func (Unavailable) Authenticate(ctx context.Context, reason string) (bool, error) {
	return false, nil
}
