package healthcheck

import (
	"context"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/dcm-project/instance-dashboard/internal/config"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-resty/resty/v2"
)

// HealthStatus is the reachability of the messaging API.
type HealthStatus string

const (
	HealthStatusReady    HealthStatus = "READY"
	HealthStatusNotReady HealthStatus = "NOT_READY"
	HealthStatusUnknown  HealthStatus = "UNKNOWN"
)

// Upstream is the last known reachability of the messaging API.
type Upstream struct {
	Status              HealthStatus
	ConsecutiveFailures int
	LastCheck           time.Time
	NextCheck           time.Time
}

// Monitor periodically probes the messaging API base URL. It only reports
// reachability and never triggers an instance fetch.
type Monitor struct {
	target                 string
	httpClient             *resty.Client
	logger                 log.Logger
	interval               time.Duration
	stopCh                 chan struct{}
	stopOnce               sync.Once
	wg                     sync.WaitGroup
	maxConsecutiveFailures int
	baseBackoffInterval    time.Duration
	maxBackoffInterval     time.Duration

	mu       sync.RWMutex
	upstream Upstream
}

// NewMonitor creates a monitor probing target.
func NewMonitor(target string, config *config.HealthCheckConfig, logger log.Logger) *Monitor {
	return &Monitor{
		target:                 target,
		httpClient:             resty.New().SetTimeout(config.Timeout),
		logger:                 logger,
		interval:               config.Interval,
		stopCh:                 make(chan struct{}),
		maxConsecutiveFailures: config.MaxConsecutiveFailures,
		baseBackoffInterval:    config.BaseBackoffInterval,
		maxBackoffInterval:     config.MaxBackoffInterval,
		upstream:               Upstream{Status: HealthStatusUnknown},
	}
}

// Start begins the monitoring loop
func (m *Monitor) Start(ctx context.Context) {
	m.wg.Add(1)
	go m.run(ctx)
}

// Stop stops the loop and waits for it to exit. It is safe to call more than once.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.wg.Wait()
}

func (m *Monitor) run(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.CheckUpstream(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case now := <-ticker.C:
			if !now.Before(m.Status().NextCheck) {
				m.CheckUpstream(ctx)
			}
		}
	}
}

// Status returns the last recorded reachability.
func (m *Monitor) Status() Upstream {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.upstream
}

// CheckUpstream probes the target once and records the outcome.
func (m *Monitor) CheckUpstream(ctx context.Context) {
	now := time.Now()
	reachable := m.performHealthCheck(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	previous := m.upstream.Status
	newStatus := HealthStatusReady
	consecutiveFailures := 0
	if !reachable {
		consecutiveFailures = m.upstream.ConsecutiveFailures + 1
		newStatus = previous
		if consecutiveFailures >= m.maxConsecutiveFailures {
			newStatus = HealthStatusNotReady
		}
	}

	m.upstream = Upstream{
		Status:              newStatus,
		ConsecutiveFailures: consecutiveFailures,
		LastCheck:           now,
		NextCheck:           m.CalculateNextCheckTime(now, newStatus, consecutiveFailures),
	}

	if previous != newStatus {
		level.Info(m.logger).Log("msg", "messaging API reachability changed", "target", m.target, "from", previous, "to", newStatus)
	}
}

// performHealthCheck treats any response below 500 as reachable; the base URL
// itself is not an authenticated endpoint.
func (m *Monitor) performHealthCheck(ctx context.Context) bool {
	resp, err := m.httpClient.R().SetContext(ctx).Get(m.target)
	if err != nil {
		level.Debug(m.logger).Log("msg", "upstream check failed", "target", m.target, "err", err)
		return false
	}
	if resp.StatusCode() < http.StatusInternalServerError {
		return true
	}

	level.Debug(m.logger).Log("msg", "upstream check failed", "target", m.target, "status", resp.StatusCode())
	return false
}

// CalculateNextCheckTime determines when the next check should occur.
// Reachable or not yet failing: the standard interval.
// Otherwise exponential backoff: min(MaxBackoff, BaseInterval * 2^(failures - MaxConsecutiveFailures))
func (m *Monitor) CalculateNextCheckTime(now time.Time, status HealthStatus, consecutiveFailures int) time.Time {
	if status != HealthStatusNotReady {
		return now.Add(m.interval)
	}

	exponent := consecutiveFailures - m.maxConsecutiveFailures
	if exponent < 0 {
		exponent = 0
	}

	const maxExponent = 10
	if exponent > maxExponent {
		exponent = maxExponent
	}

	backoffMultiplier := math.Pow(2, float64(exponent))
	backoffDuration := time.Duration(float64(m.baseBackoffInterval) * backoffMultiplier)

	if backoffDuration > m.maxBackoffInterval {
		backoffDuration = m.maxBackoffInterval
	}

	return now.Add(backoffDuration)
}
