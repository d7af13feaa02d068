package findings

import (
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/openeurope/energyaudit/internal/config"
	"github.com/openeurope/energyaudit/pkg/types"
)

const (
	defaultCooldown = 15 * time.Minute
	maxHistoryLen   = 200
	recentWindow    = time.Hour
)

// State values of an Alert.
const (
	StateFiring   = "firing"
	StateResolved = "resolved"
)

// Alert is a finding tracked across runs of the same input.
type Alert struct {
	types.Finding
	State      string     `json:"state"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

type rule struct {
	config.FindingRule
	cond Condition
}

// Engine evaluates finding rules against finished runs and delivers webhook
// notifications when a rule starts or stops firing for an input.
//
// Engine is safe for concurrent use.
type Engine struct {
	rules    []rule
	webhooks []config.WebhookConfig

	mu       sync.Mutex
	active   map[string]*Alert    // key: "ruleName:input"
	lastFire map[string]time.Time // last notification per key (for cooldown)
	history  []*Alert             // recently resolved alerts
	client   *http.Client
	now      func() time.Time
	inflight sync.WaitGroup
}

// New creates an Engine from the findings configuration. Every rule
// condition is parsed up front; a bad expression is a configuration error.
// An Engine with no rules is valid and Evaluate returns nothing.
func New(cfg config.FindingsConfig) (*Engine, error) {
	e := &Engine{
		webhooks: cfg.Webhooks,
		active:   make(map[string]*Alert),
		lastFire: make(map[string]time.Time),
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
	}
	for i, r := range cfg.Rules {
		cond, err := ParseCondition(r.Condition)
		if err != nil {
			return nil, fmt.Errorf("findings: rule[%d] %q: %w", i, r.Name, err)
		}
		if r.Severity == "" {
			r.Severity = "warning"
		}
		e.rules = append(e.rules, rule{FindingRule: r, cond: cond})
	}
	return e, nil
}

// Evaluate tests every rule against run and returns the findings that hold
// for it. Webhooks are notified asynchronously when a rule starts firing for
// the run's input (subject to the rule's cooldown) and when a previously
// firing rule stops holding. Call Wait to block until deliveries finish.
func (e *Engine) Evaluate(run *types.Run) []types.Finding {
	if e == nil || len(e.rules) == 0 {
		return nil
	}

	input := filepath.Base(run.Input)
	rd := digest(run, input)
	now := e.now()
	var out []types.Finding

	for _, r := range e.rules {
		key := r.Name + ":" + input
		fires, value := r.cond.Eval(run)

		e.mu.Lock()
		if fires {
			f := types.Finding{
				Rule:     r.Name,
				Input:    input,
				Severity: r.Severity,
				Value:    value,
				FiredAt:  now,
				Message: fmt.Sprintf("[%s] %s fired on %s: %s = %.2f",
					r.Severity, r.Name, input, r.cond.Field, value),
			}
			out = append(out, f)

			cooldown := r.Cooldown
			if cooldown <= 0 {
				cooldown = defaultCooldown
			}
			last, seen := e.lastFire[key]
			if seen && now.Sub(last) <= cooldown {
				if a, ok := e.active[key]; ok {
					a.Value = value
				}
				e.mu.Unlock()
				continue
			}
			a := &Alert{Finding: f, State: StateFiring}
			e.active[key] = a
			e.lastFire[key] = now
			n := &notice{Alert: *a, Run: rd}
			e.mu.Unlock()

			slog.Warn("finding fired",
				"rule", r.Name,
				"input", input,
				"value", value,
				"severity", r.Severity,
			)
			e.dispatch(n)
			continue
		}

		a, ok := e.active[key]
		if !ok {
			e.mu.Unlock()
			continue
		}
		resolved := now
		a.State = StateResolved
		a.ResolvedAt = &resolved
		delete(e.active, key)
		delete(e.lastFire, key)

		e.history = append(e.history, a)
		if len(e.history) > maxHistoryLen {
			e.history = e.history[len(e.history)-maxHistoryLen:]
		}
		n := &notice{Alert: *a, Run: rd}
		e.mu.Unlock()

		slog.Info("finding resolved", "rule", r.Name, "input", input)
		e.dispatch(n)
	}
	return out
}

// Active returns copies of all currently firing alerts plus any resolved
// within the past hour, newest first.
func (e *Engine) Active() []*Alert {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-recentWindow)
	out := make([]*Alert, 0, len(e.active))
	for _, a := range e.active {
		cp := *a
		out = append(out, &cp)
	}
	for _, a := range e.history {
		if a.ResolvedAt != nil && a.ResolvedAt.After(cutoff) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FiredAt.After(out[j].FiredAt) })
	return out
}

// Wait blocks until all in-flight webhook deliveries have finished.
func (e *Engine) Wait() {
	if e == nil {
		return
	}
	e.inflight.Wait()
}

func (e *Engine) dispatch(n *notice) {
	if len(e.webhooks) == 0 {
		return
	}
	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()
		e.deliver(n)
	}()
}
