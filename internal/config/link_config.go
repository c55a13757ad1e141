package config

import (
	"strconv"
	"time"
)

type LinkConfig interface {
	GetLinkTimeout() time.Duration
	GetTokenPrefix() string
}

type Link struct{}

var _ LinkConfig = Link{}

// GetLinkTimeout returns the wall-clock budget for an interactive QR or
// pairing-code flow. The underlying connection is torn down once it elapses.
func (Link) GetLinkTimeout() time.Duration {
	seconds, err := strconv.Atoi(GetEnv("LINK_TIMEOUT_SECONDS", "60"))
	if err != nil || seconds <= 0 {
		seconds = 60
	}
	return time.Duration(seconds) * time.Second
}

// GetTokenPrefix returns the product prefix prepended to serialized session
// tokens.
func (Link) GetTokenPrefix() string {
	return GetEnv("TOKEN_PREFIX", "")
}
