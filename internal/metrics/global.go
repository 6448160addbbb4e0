package metrics

import "sync"

var (
	globalCollector *Collector
	once            sync.Once
)

// Global returns the global metrics collector.
func Global() *Collector {
	once.Do(func() {
		globalCollector = NewCollector()
	})
	return globalCollector
}

// IncCounter increments a global counter by 1.
func IncCounter(name string) {
	Global().Counter(name).Inc()
}

// AddCounter adds n to a global counter.
func AddCounter(name string, n int64) {
	Global().Counter(name).Add(n)
}

// SetGauge sets a global gauge value.
func SetGauge(name string, v float64) {
	Global().Gauge(name).Set(v)
}

// StartTimer starts a global timer.
func StartTimer(name string) *TimerContext {
	return Global().Timer(name).Start()
}

// Metric names for the memory subsystem
const (
	// Session store
	MetricMessagesStored      = "hearmem_messages_stored_total"
	MetricSessionsStarted     = "hearmem_sessions_started_total"
	MetricSessionsAutoStarted = "hearmem_sessions_auto_started_total"
	MetricConversationSearch  = "hearmem_conversation_searches_total"
	MetricFlushFailures       = "hearmem_flush_failures_total"

	// Reference manager
	MetricReferencesCreated = "hearmem_references_created_total"
	MetricReferencesDeleted = "hearmem_references_deleted_total"
	MetricReferenceSearch   = "hearmem_reference_searches_total"

	// Memory aggregator
	MetricMemoriesPromoted = "hearmem_memories_promoted_total"
	MetricMemoryRetrievals = "hearmem_memory_retrievals_total"

	// Storage
	MetricStorageCacheHits   = "hearmem_storage_cache_hits_total"
	MetricStorageCacheMisses = "hearmem_storage_cache_misses_total"

	// Timers
	MetricSearchDuration = "hearmem_search_duration"
	MetricFlushDuration  = "hearmem_flush_duration"
)
