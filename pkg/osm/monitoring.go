package osm

import (
	"sync"
	"time"
)

// MonitoringHooks lets the server observe geocoder traffic without this
// package importing the metrics registry.
type MonitoringHooks struct {
	// OnRequest is called before an HTTP request is sent.
	OnRequest func(service, operation string)

	// OnResponse is called after a request completes or fails.
	OnResponse func(service, operation string, duration time.Duration, success bool)

	// OnRateLimit is called when the client had to wait for its limiter.
	OnRateLimit func(service string, waitTime time.Duration)

	// OnCache is called for every cache lookup with the cache size after it.
	OnCache func(hit bool, size int)

	// OnError is called when a request fails.
	OnError func(service, errorType string)
}

var (
	globalHooks *MonitoringHooks
	hooksMutex  sync.RWMutex
)

// SetMonitoringHooks installs process-wide hooks. Pass nil to remove them.
func SetMonitoringHooks(hooks *MonitoringHooks) {
	hooksMutex.Lock()
	defer hooksMutex.Unlock()
	globalHooks = hooks
}

func getMonitoringHooks() *MonitoringHooks {
	hooksMutex.RLock()
	defer hooksMutex.RUnlock()
	return globalHooks
}

func notifyRequest(service, operation string) {
	if h := getMonitoringHooks(); h != nil && h.OnRequest != nil {
		h.OnRequest(service, operation)
	}
}

func notifyResponse(service, operation string, d time.Duration, success bool) {
	if h := getMonitoringHooks(); h != nil && h.OnResponse != nil {
		h.OnResponse(service, operation, d, success)
	}
}

func notifyRateLimit(service string, wait time.Duration) {
	if h := getMonitoringHooks(); h != nil && h.OnRateLimit != nil {
		h.OnRateLimit(service, wait)
	}
}

func notifyCache(hit bool, size int) {
	if h := getMonitoringHooks(); h != nil && h.OnCache != nil {
		h.OnCache(hit, size)
	}
}

func notifyError(service, errorType string) {
	if h := getMonitoringHooks(); h != nil && h.OnError != nil {
		h.OnError(service, errorType)
	}
}
