package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for source resolution and playback.  All methods are safe to call on
// a nil *Metrics, which records nothing.
type Metrics struct {
	registry            *prometheus.Registry
	providerRequests    *prometheus.CounterVec
	providerFallbacks   *prometheus.CounterVec
	episodeResolutions  *prometheus.CounterVec
	sourceResolutions   *prometheus.CounterVec
	playbackSessions    *prometheus.CounterVec
	playbackRecoveries  *prometheus.CounterVec
	playbackFatalErrors *prometheus.CounterVec
	playbackState       *prometheus.GaugeVec
	httpRequests        *prometheus.CounterVec
}

// New creates and registers the Prometheus metrics
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		providerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "anistream_provider_requests_total",
			Help: "Provider calls by provider, operation and result",
		}, []string{"provider", "op", "result"}),
		providerFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "anistream_provider_fallbacks_total",
			Help: "Times a provider was skipped during episode resolution, by provider and reason",
		}, []string{"provider", "reason"}),
		episodeResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "anistream_episode_resolutions_total",
			Help: "Episode list resolutions by winning provider, or not_found",
		}, []string{"provider"}),
		sourceResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "anistream_source_resolutions_total",
			Help: "Episode source resolutions by provider and result",
		}, []string{"provider", "result"}),
		playbackSessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "anistream_playback_sessions_total",
			Help: "Playback sessions started by attach mode",
		}, []string{"mode"}),
		playbackRecoveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "anistream_playback_recoveries_total",
			Help: "Automatic playback recovery attempts by error class",
		}, []string{"class"}),
		playbackFatalErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "anistream_playback_fatal_errors_total",
			Help: "Playback sessions that ended in a fatal error, by error class",
		}, []string{"class"}),
		playbackState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "anistream_playback_state",
			Help: "1 for the current playback state, 0 for every other state",
		}, []string{"state"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "anistream_metrics_http_requests_total",
			Help: "Requests served by the metrics endpoint, by status class",
		}, []string{"status"}),
	}

	registry.MustRegister(
		m.providerRequests,
		m.providerFallbacks,
		m.episodeResolutions,
		m.sourceResolutions,
		m.playbackSessions,
		m.playbackRecoveries,
		m.playbackFatalErrors,
		m.playbackState,
		m.httpRequests,
	)

	return m
}

// ProviderRequest records one provider call
func (m *Metrics) ProviderRequest(provider, op string, err error) {
	if m == nil {
		return
	}
	m.providerRequests.WithLabelValues(provider, op, result(err)).Inc()
}

// ProviderFallback records that resolution moved past a provider
func (m *Metrics) ProviderFallback(provider, reason string) {
	if m == nil {
		return
	}
	m.providerFallbacks.WithLabelValues(provider, reason).Inc()
}

// EpisodesResolved records the provider an episode list was resolved from.  An empty provider means not found.
func (m *Metrics) EpisodesResolved(provider string) {
	if m == nil {
		return
	}
	if provider == "" {
		provider = "not_found"
	}
	m.episodeResolutions.WithLabelValues(provider).Inc()
}

// SourceResolved records the result of resolving an episode source
func (m *Metrics) SourceResolved(provider string, err error) {
	if m == nil {
		return
	}
	m.sourceResolutions.WithLabelValues(provider, result(err)).Inc()
}

// PlaybackStarted records a new playback session and how it was attached
func (m *Metrics) PlaybackStarted(mode string) {
	if m == nil {
		return
	}
	m.playbackSessions.WithLabelValues(mode).Inc()
}

// PlaybackRecovery records an automatic recovery attempt
func (m *Metrics) PlaybackRecovery(class string) {
	if m == nil {
		return
	}
	m.playbackRecoveries.WithLabelValues(class).Inc()
}

// PlaybackFatal records a session ending in a fatal error
func (m *Metrics) PlaybackFatal(class string) {
	if m == nil {
		return
	}
	m.playbackFatalErrors.WithLabelValues(class).Inc()
}

// SetPlaybackState marks state as the current playback state
func (m *Metrics) SetPlaybackState(state string, all []string) {
	if m == nil {
		return
	}
	for _, s := range all {
		v := 0.0
		if s == state {
			v = 1
		}
		m.playbackState.WithLabelValues(s).Set(v)
	}
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}

// Registry exposes the underlying registry, mostly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
