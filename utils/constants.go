package utils

import (
	"time"
)

type contextKey string

// Request-scoped context keys set by handlers
const (
	RequestIDKey contextKey = "request_id"
	EndpointKey  contextKey = "endpoint"
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Refresh pipeline constants
const (
	// MinGDPMultiplier and MaxGDPMultiplier bound the random factor used for estimated GDP (inclusive)
	MinGDPMultiplier = 1000
	MaxGDPMultiplier = 2000

	// SummaryTopN is the number of countries listed on the summary image
	SummaryTopN = 5

	// DefaultSourceTimeout bounds each upstream HTTP call
	DefaultSourceTimeout = 10 * time.Second

	// DefaultRequestTimeout bounds a regular API request
	DefaultRequestTimeout = 30 * time.Second

	// RefreshRequestTimeout bounds a refresh request (two upstream calls plus rendering)
	RefreshRequestTimeout = 2 * time.Minute
)

// Cache keys (prefixed with CACHE_REDIS_PREFIX)
const (
	SummaryImageCacheKey = "summary_image"
)
