// Package push delivers notifications to user devices.
package push

import (
	"context"
	"errors"
)

var (
	// ErrTokenNotRegistered means the device token was unregistered by the provider.
	ErrTokenNotRegistered = errors.New("push token not registered")
	// ErrInvalidToken means the provider rejected the token format.
	ErrInvalidToken = errors.New("push token invalid")
)

// Message is a single notification addressed to one device token.
type Message struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

// Sender delivers messages through one channel.
type Sender interface {
	Send(ctx context.Context, msg Message) (messageID string, err error)
	Channel() string
}

// IsTokenError reports whether err means the stored token should be dropped.
func IsTokenError(err error) bool {
	return errors.Is(err, ErrTokenNotRegistered) || errors.Is(err, ErrInvalidToken)
}
