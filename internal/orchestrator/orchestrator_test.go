package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/evdal/switchback/internal/deploytypes"
	"github.com/evdal/switchback/internal/notify"
	"github.com/evdal/switchback/internal/probe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastPolicy keeps tests quick while still exercising the retry loop.
func fastPolicy() Policy {
	return Policy{
		MaxProbeAttempts: 5,
		ProbeInterval:    time.Millisecond,
		ProbeTimeout:     50 * time.Millisecond,
	}
}

type fakeController struct {
	mu       sync.Mutex
	deploys  []string // artifacts passed to Deploy, in order
	retired  []string
	failOn   map[string]error // artifact -> Deploy error
	notRun   map[string]bool  // artifact -> IsRunning reports false
	runCheck []string
}

func newFakeController() *fakeController {
	return &fakeController{
		failOn: make(map[string]error),
		notRun: make(map[string]bool),
	}
}

func (c *fakeController) Deploy(ctx context.Context, target, artifact string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deploys = append(c.deploys, artifact)
	return c.failOn[artifact]
}

func (c *fakeController) Retire(ctx context.Context, target, artifact string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retired = append(c.retired, artifact)
	return nil
}

func (c *fakeController) IsRunning(ctx context.Context, target, artifact string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runCheck = append(c.runCheck, artifact)
	return !c.notRun[artifact], nil
}

// fakeProber replays a scripted sequence of outcomes per artifact. The
// current artifact is tracked through the controller's deploy order, so
// rollback probes consult the rollback artifact's script.
type fakeProber struct {
	mu         sync.Mutex
	controller *fakeController
	scripts    map[string][]probe.Outcome // artifact -> outcomes; last repeats
	calls      map[string]int
	block      chan struct{} // when set, Probe blocks until closed
}

func newFakeProber(c *fakeController) *fakeProber {
	return &fakeProber{
		controller: c,
		scripts:    make(map[string][]probe.Outcome),
		calls:      make(map[string]int),
	}
}

func (p *fakeProber) Probe(ctx context.Context, target string) probe.Result {
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.controller.mu.Lock()
	artifact := p.controller.deploys[len(p.controller.deploys)-1]
	p.controller.mu.Unlock()

	script := p.scripts[artifact]
	i := p.calls[artifact]
	p.calls[artifact]++

	outcome := probe.Unhealthy
	if len(script) > 0 {
		if i >= len(script) {
			i = len(script) - 1
		}
		outcome = script[i]
	}
	return probe.Result{Outcome: outcome, ObservedAt: time.Now()}
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *fakeNotifier) Emit(ctx context.Context, event notify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *fakeNotifier) kinds() []notify.EventKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	kinds := make([]notify.EventKind, len(n.events))
	for i, e := range n.events {
		kinds[i] = e.Kind
	}
	return kinds
}

func (n *fakeNotifier) count(kind notify.EventKind) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, e := range n.events {
		if e.Kind == kind {
			count++
		}
	}
	return count
}

type memoryStore struct {
	mu      sync.Mutex
	records map[string]deploytypes.DeploymentRecord
	history []deploytypes.Deployment
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[string]deploytypes.DeploymentRecord)}
}

func (s *memoryStore) GetRecord(ctx context.Context, target string) (*deploytypes.DeploymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[target]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (s *memoryStore) SaveRecord(ctx context.Context, record *deploytypes.DeploymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.Target] = *record
	return nil
}

func (s *memoryStore) SaveDeployment(ctx context.Context, deployment deploytypes.Deployment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, deployment)
	return nil
}

func (s *memoryStore) PruneOldDeployments(ctx context.Context, target string, keep int) error {
	return nil
}

type harness struct {
	controller *fakeController
	prober     *fakeProber
	notifier   *fakeNotifier
	store      *memoryStore
	orch       *Orchestrator
}

func newHarness() *harness {
	controller := newFakeController()
	prober := newFakeProber(controller)
	notifier := &fakeNotifier{}
	store := newMemoryStore()
	orch := New(controller, prober, notifier, store, slog.New(slog.DiscardHandler))
	return &harness{controller: controller, prober: prober, notifier: notifier, store: store, orch: orch}
}

// seedStable installs a stable record for target as if artifact had been
// promoted earlier, and scripts its probes healthy.
func (h *harness) seedStable(t *testing.T, target, artifact string) {
	t.Helper()
	now := time.Now()
	require.NoError(t, h.store.SaveRecord(context.Background(), &deploytypes.DeploymentRecord{
		Target:          target,
		CurrentArtifact: artifact,
		State:           deploytypes.StateStable,
		StartedAt:       now,
		LastTransition:  now,
	}))
	h.prober.scripts[artifact] = []probe.Outcome{probe.Healthy}
}

func TestDeployHappyPath(t *testing.T) {
	h := newHarness()
	h.seedStable(t, "api", "model:v1")
	h.prober.scripts["model:v2"] = []probe.Outcome{probe.Healthy}

	record, err := h.orch.Deploy(context.Background(), "", "api", "model:v2", fastPolicy())
	require.NoError(t, err)

	assert.Equal(t, deploytypes.StateStable, record.State)
	assert.Equal(t, "model:v2", record.CurrentArtifact)
	assert.Equal(t, "model:v1", record.PreviousArtifact)
	assert.Equal(t, []string{"model:v1"}, h.controller.retired)
	assert.Equal(t, 1, h.notifier.count(notify.KindPromoted))
	assert.Equal(t, []notify.EventKind{
		notify.KindStarted, notify.KindProbeAttempt, notify.KindPromoted,
	}, h.notifier.kinds())
}

func TestDeployTransientFlakeThenRecovery(t *testing.T) {
	h := newHarness()
	h.seedStable(t, "api", "model:v1")
	h.prober.scripts["model:v2"] = []probe.Outcome{probe.Unhealthy, probe.Unhealthy, probe.Healthy}

	record, err := h.orch.Deploy(context.Background(), "", "api", "model:v2", fastPolicy())
	require.NoError(t, err)

	assert.Equal(t, "model:v2", record.CurrentArtifact)
	assert.Equal(t, 3, h.prober.calls["model:v2"])
	assert.Equal(t, 0, h.notifier.count(notify.KindRolledBack))
	assert.Equal(t, 3, h.notifier.count(notify.KindProbeAttempt))
}

func TestDeployFullRollback(t *testing.T) {
	h := newHarness()
	h.seedStable(t, "api", "model:v1")
	h.prober.scripts["model:v2"] = []probe.Outcome{probe.Unhealthy}

	record, err := h.orch.Deploy(context.Background(), "", "api", "model:v2", fastPolicy())

	var deployErr *DeployError
	require.ErrorAs(t, err, &deployErr)
	assert.Equal(t, PhaseProbe, deployErr.Phase)
	assert.True(t, deployErr.RolledBack)
	assert.Equal(t, "model:v1", deployErr.RollbackArtifact)

	assert.Equal(t, deploytypes.StateStable, record.State)
	assert.Equal(t, "model:v1", record.CurrentArtifact)
	assert.Equal(t, 5, h.prober.calls["model:v2"], "exactly maxProbeAttempts probes")
	assert.Equal(t, 1, h.notifier.count(notify.KindRolledBack))
	assert.Equal(t, 0, h.notifier.count(notify.KindPromoted))

	// Rollback stops the unhealthy artifact and redeploys the previous one.
	assert.Equal(t, []string{"model:v2", "model:v1"}, h.controller.deploys)
	assert.Equal(t, []string{"model:v2"}, h.controller.retired)
}

func TestDeployCatastrophicFailure(t *testing.T) {
	h := newHarness()
	h.seedStable(t, "api", "model:v1")
	h.prober.scripts["model:v1"] = []probe.Outcome{probe.Unhealthy}
	h.prober.scripts["model:v2"] = []probe.Outcome{probe.Unreachable}

	record, err := h.orch.Deploy(context.Background(), "", "api", "model:v2", fastPolicy())

	var deployErr *DeployError
	require.ErrorAs(t, err, &deployErr)
	assert.Equal(t, PhaseRollback, deployErr.Phase)
	assert.False(t, deployErr.RolledBack)
	assert.Equal(t, "model:v2", deployErr.Artifact)
	assert.Equal(t, "model:v1", deployErr.RollbackArtifact)
	assert.NotNil(t, deployErr.RollbackErr)

	assert.Equal(t, deploytypes.StateFailed, record.State)
	// Never silently advanced to the failed new artifact.
	assert.Equal(t, "model:v1", record.CurrentArtifact)

	assert.Equal(t, 1, h.notifier.count(notify.KindFailed))
	failedEvent := h.notifier.events[len(h.notifier.events)-1]
	assert.Equal(t, "model:v2", failedEvent.Payload["artifact"])
	assert.Equal(t, "model:v1", failedEvent.Payload["rollbackArtifact"])
}

func TestFirstDeployFailureHasNoRollbackTarget(t *testing.T) {
	h := newHarness()
	h.prober.scripts["model:v1"] = []probe.Outcome{probe.Unhealthy}

	record, err := h.orch.Deploy(context.Background(), "", "api", "model:v1", fastPolicy())

	var deployErr *DeployError
	require.ErrorAs(t, err, &deployErr)
	assert.Equal(t, PhaseProbe, deployErr.Phase)
	assert.Empty(t, deployErr.RollbackArtifact)
	assert.Equal(t, deploytypes.StateFailed, record.State)
	assert.Empty(t, record.CurrentArtifact)
	// Only the failed artifact was ever deployed.
	assert.Equal(t, []string{"model:v1"}, h.controller.deploys)
}

func TestStartFailureShortCircuitsWithoutProbing(t *testing.T) {
	h := newHarness()
	h.seedStable(t, "api", "model:v1")
	h.controller.failOn["model:v2"] = errors.New("image pull failed")

	record, err := h.orch.Deploy(context.Background(), "", "api", "model:v2", fastPolicy())

	var deployErr *DeployError
	require.ErrorAs(t, err, &deployErr)
	assert.Equal(t, PhaseStart, deployErr.Phase)
	assert.True(t, deployErr.RolledBack)

	// No probe attempt was consumed for the artifact that never started.
	assert.Equal(t, 0, h.prober.calls["model:v2"])
	assert.Equal(t, deploytypes.StateStable, record.State)
	assert.Equal(t, "model:v1", record.CurrentArtifact)
}

func TestNeverConfirmedRunningIsStartFailure(t *testing.T) {
	h := newHarness()
	h.seedStable(t, "api", "model:v1")
	h.controller.notRun["model:v2"] = true

	_, err := h.orch.Deploy(context.Background(), "", "api", "model:v2", fastPolicy())

	var deployErr *DeployError
	require.ErrorAs(t, err, &deployErr)
	assert.Equal(t, PhaseStart, deployErr.Phase)
	assert.Equal(t, 0, h.prober.calls["model:v2"])
}

func TestIdempotentRedeployOfCurrentArtifact(t *testing.T) {
	h := newHarness()
	h.seedStable(t, "api", "model:v1")

	record, err := h.orch.Deploy(context.Background(), "", "api", "model:v1", fastPolicy())
	require.NoError(t, err)

	assert.Equal(t, deploytypes.StateStable, record.State)
	assert.Equal(t, "model:v1", record.CurrentArtifact)
	assert.Empty(t, record.PreviousArtifact, "previous reference left untouched")
	assert.Empty(t, h.controller.retired, "no duplicate retirement")
	assert.Equal(t, 1, h.notifier.count(notify.KindPromoted))
}

func TestConcurrentDeploySameTargetRejected(t *testing.T) {
	h := newHarness()
	h.seedStable(t, "api", "model:v1")
	h.prober.scripts["model:v2"] = []probe.Outcome{probe.Healthy}
	h.prober.block = make(chan struct{})

	firstDone := make(chan error, 1)
	go func() {
		_, err := h.orch.Deploy(context.Background(), "", "api", "model:v2", fastPolicy())
		firstDone <- err
	}()

	// Wait for the first request to take the in-flight slot.
	require.Eventually(t, func() bool {
		h.orch.mu.Lock()
		defer h.orch.mu.Unlock()
		_, busy := h.orch.inflight["api"]
		return busy
	}, time.Second, time.Millisecond)

	// Hammer the busy target from several goroutines.
	var wg sync.WaitGroup
	var rejected sync.Map
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := h.orch.Deploy(context.Background(), "", "api", "model:v3", fastPolicy())
			rejected.Store(i, err)
		}(i)
	}
	wg.Wait()

	rejectedCount := 0
	rejected.Range(func(_, v any) bool {
		require.ErrorIs(t, v.(error), ErrDeploymentInProgress)
		rejectedCount++
		return true
	})
	assert.Equal(t, 8, rejectedCount)

	close(h.prober.block)
	require.NoError(t, <-firstDone)

	// Exactly one deploy proceeded; the record is not corrupted.
	record, err := h.store.GetRecord(context.Background(), "api")
	require.NoError(t, err)
	assert.Equal(t, "model:v2", record.CurrentArtifact)
	assert.Equal(t, deploytypes.StateStable, record.State)
	assert.Equal(t, 1, h.notifier.count(notify.KindPromoted))
}

func TestAdmitHoldsExclusiveClaim(t *testing.T) {
	h := newHarness()

	admission, err := h.orch.Admit("api")
	require.NoError(t, err)

	_, err = h.orch.Admit("api")
	require.ErrorIs(t, err, ErrDeploymentInProgress)
	_, err = h.orch.Deploy(context.Background(), "", "api", "model:v1", fastPolicy())
	require.ErrorIs(t, err, ErrDeploymentInProgress)

	// A claim given back without deploying frees the target; releasing
	// twice is harmless.
	admission.Release()
	admission.Release()

	h.prober.scripts["model:v1"] = []probe.Outcome{probe.Healthy}
	admission, err = h.orch.Admit("api")
	require.NoError(t, err)
	record, err := admission.Deploy(context.Background(), "dep-1", "model:v1", fastPolicy())
	require.NoError(t, err)
	assert.Equal(t, deploytypes.StateStable, record.State)

	// Deploy released the claim when the workflow finished.
	admission, err = h.orch.Admit("api")
	require.NoError(t, err)
	admission.Release()
}

func TestDistinctTargetsDeployConcurrently(t *testing.T) {
	h := newHarness()
	h.prober.scripts["model:v1"] = []probe.Outcome{probe.Healthy}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, target := range []string{"api", "worker"} {
		wg.Add(1)
		go func(i int, target string) {
			defer wg.Done()
			_, errs[i] = h.orch.Deploy(context.Background(), "", target, "model:v1", fastPolicy())
		}(i, target)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
}

func TestEventOrdering(t *testing.T) {
	h := newHarness()
	h.seedStable(t, "api", "model:v1")
	h.prober.scripts["model:v2"] = []probe.Outcome{probe.Unhealthy, probe.Healthy}

	_, err := h.orch.Deploy(context.Background(), "", "api", "model:v2", fastPolicy())
	require.NoError(t, err)

	kinds := h.notifier.kinds()
	require.Equal(t, []notify.EventKind{
		notify.KindStarted,
		notify.KindProbeAttempt,
		notify.KindProbeAttempt,
		notify.KindPromoted,
	}, kinds)

	// Probe attempts carry their attempt number in order.
	assert.Equal(t, 1, h.notifier.events[1].Payload["attempt"])
	assert.Equal(t, 2, h.notifier.events[2].Payload["attempt"])
}

func TestExactlyOneTerminalEventPerRequest(t *testing.T) {
	h := newHarness()
	h.seedStable(t, "api", "model:v1")
	h.prober.scripts["model:v2"] = []probe.Outcome{probe.Unhealthy}

	_, _ = h.orch.Deploy(context.Background(), "", "api", "model:v2", fastPolicy())

	terminal := h.notifier.count(notify.KindPromoted) +
		h.notifier.count(notify.KindRolledBack) +
		h.notifier.count(notify.KindFailed)
	assert.Equal(t, 1, terminal)
}

func TestUnreachableRecordedDistinctly(t *testing.T) {
	h := newHarness()
	h.seedStable(t, "api", "model:v1")
	h.prober.scripts["model:v2"] = []probe.Outcome{probe.Unreachable, probe.Healthy}

	_, err := h.orch.Deploy(context.Background(), "", "api", "model:v2", fastPolicy())
	require.NoError(t, err)

	assert.Equal(t, "unreachable", h.notifier.events[1].Payload["outcome"])
	assert.Equal(t, "healthy", h.notifier.events[2].Payload["outcome"])
}

func TestCancellationDuringProbingTriggersRollback(t *testing.T) {
	h := newHarness()
	h.seedStable(t, "api", "model:v1")
	// New artifact probes unhealthy forever; the interval is long enough
	// for the cancel to land in the retry sleep.
	h.prober.scripts["model:v2"] = []probe.Outcome{probe.Unhealthy}
	policy := fastPolicy()
	policy.ProbeInterval = 30 * time.Second

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	record, err := h.orch.Deploy(ctx, "", "api", "model:v2", policy)

	var deployErr *DeployError
	require.ErrorAs(t, err, &deployErr)
	assert.True(t, deployErr.RolledBack, "rollback runs to completion despite cancellation")
	assert.Equal(t, deploytypes.StateStable, record.State)
	assert.Equal(t, "model:v1", record.CurrentArtifact)
}

func TestHistoryWrittenForTerminalStates(t *testing.T) {
	h := newHarness()
	h.prober.scripts["model:v1"] = []probe.Outcome{probe.Healthy}

	_, err := h.orch.Deploy(context.Background(), "dep-1", "api", "model:v1", fastPolicy())
	require.NoError(t, err)

	require.Len(t, h.store.history, 1)
	assert.Equal(t, "dep-1", h.store.history[0].ID)
	assert.Equal(t, "model:v1", h.store.history[0].Artifact)
	assert.Equal(t, deploytypes.StateStable, h.store.history[0].State)
}

func TestEmptyArgumentsRejected(t *testing.T) {
	h := newHarness()

	_, err := h.orch.Deploy(context.Background(), "", "", "model:v1", fastPolicy())
	assert.Error(t, err)

	_, err = h.orch.Deploy(context.Background(), "", "api", "", fastPolicy())
	assert.Error(t, err)
}
