// Package notification defines the delivery provider contract for
// verification codes and security alerts. SMS/email transport is a
// collaborator concern.
package notification

import "context"

// Channel selects the delivery transport.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Provider delivers and verifies one-time codes.
type Provider interface {
	SendVerificationCode(ctx context.Context, channel Channel, recipient string) error
	VerifyCode(ctx context.Context, recipient, code string) (bool, error)
	SendSecurityAlert(ctx context.Context, recipient, message string) error
}
