package config

import "time"

type HTTPConfig interface {
	GetRequestTimeout() time.Duration
	GetRefreshTimeout() time.Duration
}

const (
	requestTimeoutVar = "HTTP_REQUEST_TIMEOUT"
	refreshTimeoutVar = "HTTP_REFRESH_TIMEOUT"

	defaultRequestTimeout = 15 * time.Second
)

type HTTP struct{}

var _ HTTPConfig = HTTP{}

func (HTTP) GetRequestTimeout() time.Duration {
	return GetEnvDuration(requestTimeoutVar, defaultRequestTimeout)
}

// GetRefreshTimeout bounds the refresh-token call. Defaults to the request timeout.
func (h HTTP) GetRefreshTimeout() time.Duration {
	return GetEnvDuration(refreshTimeoutVar, h.GetRequestTimeout())
}
