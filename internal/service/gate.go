package service

import (
	"context"
	"errors"
	"sync"

	"github.com/dcm-project/instance-dashboard/internal/credentials"
	"github.com/dcm-project/instance-dashboard/internal/gateway"
	"github.com/dcm-project/instance-dashboard/internal/instances"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// State of the configuration gate.
type State string

const (
	StateNeedsConfig      State = "NEEDS_CONFIG"
	StateLoading          State = "LOADING"
	StateReady            State = "READY"
	StateErrorNeedsConfig State = "ERROR_NEEDS_CONFIG"
)

const (
	MessageConfigure    = "configure the API key to continue"
	MessageFetchFailed  = "failed to fetch instances"
	messageNotAvailable = "instance list is not available until the dashboard is configured"
)

// CredentialStore is the part of credentials.Store used by the gate.
type CredentialStore interface {
	Get(ctx context.Context) credentials.Credentials
	Set(ctx context.Context, c credentials.Credentials) error
}

// Fetcher retrieves the instance list from the messaging API.
type Fetcher interface {
	FetchAll(ctx context.Context, creds credentials.Credentials) ([]instances.Instance, error)
}

var (
	_ CredentialStore = (*credentials.Store)(nil)
	_ Fetcher         = (*gateway.Gateway)(nil)
)

// Snapshot is a consistent view of the gate.
type Snapshot struct {
	State         State
	Message       string
	ErrorKind     string
	APIStatus     int
	InstanceCount int
}

// Gate decides whether the instance list is available or configuration is
// required, and owns the fetches that populate the list.
type Gate struct {
	creds   CredentialStore
	fetcher Fetcher
	list    *instances.List
	logger  log.Logger

	// credMu orders credential reads and writes with sequence assignment.
	credMu sync.Mutex

	mu        sync.Mutex
	state     State
	message   string
	errorKind string
	apiStatus int
	seq       uint64
	cancel    context.CancelFunc
}

func NewGate(creds CredentialStore, fetcher Fetcher, list *instances.List, logger log.Logger) *Gate {
	return &Gate{
		creds:   creds,
		fetcher: fetcher,
		list:    list,
		logger:  logger,
		state:   StateNeedsConfig,
	}
}

// Start reads the stored credentials and fetches the instance list if an API
// key is present. Without a key the gate stays in NEEDS_CONFIG and no request
// is made. Cancelling ctx does not abort the fetch; only a newer fetch does.
func (g *Gate) Start(ctx context.Context) Snapshot {
	ctx = context.WithoutCancel(ctx)

	g.credMu.Lock()
	seq, fetchCtx, cancel := g.begin(ctx)
	c := g.creds.Get(ctx)
	g.credMu.Unlock()
	defer cancel()

	if !c.HasKey() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if seq != g.seq {
			return g.snapshotLocked()
		}
		g.cancel = nil
		g.state = StateNeedsConfig
		g.message = MessageConfigure
		g.errorKind = ""
		g.apiStatus = 0

		level.Info(g.logger).Log("msg", "no API key stored, waiting for configuration")
		return g.snapshotLocked()
	}
	return g.load(fetchCtx, seq, c)
}

// Reload re-runs the fetch with the stored credentials.
func (g *Gate) Reload(ctx context.Context) Snapshot {
	return g.Start(ctx)
}

// Submit stores c and fetches the instance list with it.
func (g *Gate) Submit(ctx context.Context, c credentials.Credentials) (Snapshot, error) {
	if !c.HasKey() {
		return Snapshot{}, &ServiceError{Code: ErrCodeValidation, Message: "apiKey must not be empty"}
	}
	ctx = context.WithoutCancel(ctx)

	g.credMu.Lock()
	if err := g.creds.Set(ctx, c); err != nil {
		g.credMu.Unlock()
		level.Error(g.logger).Log("msg", "failed to store credentials", "err", err)
		return Snapshot{}, &ServiceError{Code: ErrCodeInternal, Message: err.Error()}
	}
	seq, fetchCtx, cancel := g.begin(ctx)
	g.credMu.Unlock()
	defer cancel()

	return g.load(fetchCtx, seq, c), nil
}

// begin supersedes any in-flight fetch and takes the next sequence number.
// Callers hold credMu so sequence order matches credential order.
func (g *Gate) begin(ctx context.Context) (uint64, context.Context, context.CancelFunc) {
	fetchCtx, cancel := context.WithCancel(ctx)

	g.mu.Lock()
	defer g.mu.Unlock()
	g.supersede()
	g.seq++
	g.cancel = cancel
	return g.seq, fetchCtx, cancel
}

// load runs the fetch numbered seq. A newer fetch cancels this one; a result
// that is no longer the latest is dropped.
func (g *Gate) load(ctx context.Context, seq uint64, c credentials.Credentials) Snapshot {
	g.mu.Lock()
	if seq != g.seq {
		defer g.mu.Unlock()
		return g.snapshotLocked()
	}
	g.state = StateLoading
	g.message = ""
	g.mu.Unlock()

	items, err := g.fetcher.FetchAll(ctx, c)

	g.mu.Lock()
	defer g.mu.Unlock()
	if seq != g.seq {
		level.Debug(g.logger).Log("msg", "discarding stale fetch result", "seq", seq, "latest", g.seq)
		return g.snapshotLocked()
	}
	g.cancel = nil

	if err != nil {
		g.fail(err)
		return g.snapshotLocked()
	}

	g.list.SetAuthoritative(items)
	g.state = StateReady
	g.message = ""
	g.errorKind = ""
	g.apiStatus = 0
	level.Info(g.logger).Log("msg", "instance list loaded", "count", len(items))
	return g.snapshotLocked()
}

// fail records err. The list is left as it was.
func (g *Gate) fail(err error) {
	g.state = StateErrorNeedsConfig
	g.message = err.Error()
	if g.message == "" {
		g.message = MessageFetchFailed
	}
	g.errorKind = gateway.Kind(err)
	g.apiStatus = 0
	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) {
		g.apiStatus = apiErr.Status
	}
	level.Warn(g.logger).Log("msg", "failed to fetch instances", "kind", g.errorKind, "err", err)
}

// supersede cancels the in-flight fetch, if any, and invalidates its result.
func (g *Gate) supersede() {
	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
		g.seq++
	}
}

// Instances returns the filtered view of the list.
func (g *Gate) Instances(f instances.Filter) ([]instances.Instance, int, error) {
	if err := g.requireReady(); err != nil {
		return nil, 0, err
	}
	return g.list.FilteredView(f), g.list.Len(), nil
}

// ApplyAction applies a local action to one instance.
func (g *Gate) ApplyAction(id int64, action instances.Action) error {
	if err := g.requireReady(); err != nil {
		return err
	}
	g.list.ApplyAction(id, action)
	level.Info(g.logger).Log("msg", "applied local action", "instance", id, "action", action)
	return nil
}

func (g *Gate) requireReady() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != StateReady {
		return &ServiceError{Code: ErrCodeNotConfigured, Message: messageNotAvailable}
	}
	return nil
}

func (g *Gate) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotLocked()
}

func (g *Gate) snapshotLocked() Snapshot {
	return Snapshot{
		State:         g.state,
		Message:       g.message,
		ErrorKind:     g.errorKind,
		APIStatus:     g.apiStatus,
		InstanceCount: g.list.Len(),
	}
}
