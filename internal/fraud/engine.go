package fraud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/Diego-Anjos/Forsakenscan-Projeto/internal/metrics"
	"github.com/Diego-Anjos/Forsakenscan-Projeto/internal/traces"
)

// Engine runs every registered rule against a transaction fact and merges
// the triggered reasons into a single Verdict.
//
// Failure policy: a panic or transient data-access failure inside one rule
// is isolated, logged and counted as not-triggered; the remaining rules
// still run. Only ErrUnavailable aborts the evaluation, so the caller can
// tell "not suspicious" apart from "could not evaluate".
type Engine struct {
	hist   HistoryProvider
	rules  []Rule
	logger *slog.Logger
}

// Option configures the engine.
type Option func(*Engine)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithRules replaces the default rule set.
func WithRules(rules []Rule) Option {
	return func(e *Engine) { e.rules = rules }
}

// NewEngine creates an evaluation engine over the given history provider.
// The audit sink is handed to the rules that need it (shift limit).
func NewEngine(hist HistoryProvider, audit AuditSink, opts ...Option) *Engine {
	e := &Engine{
		hist:   hist,
		rules:  DefaultRules(audit),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules returns the registered rules in registration order.
func (e *Engine) Rules() []Rule { return e.rules }

type ruleHit struct {
	priority int
	order    int
	reason   string
}

// Evaluate runs all rules against the fact and returns the merged Verdict.
// Deterministic for a fixed history snapshot: every read is as-of the
// fact's timestamp. Returns an error only when the history provider is
// unreachable; the transaction must then not be treated as clean.
func (e *Engine) Evaluate(ctx context.Context, fact *TransactionFact) (*Verdict, error) {
	ctx, span := traces.StartSpan(ctx, "fraud.evaluate",
		traces.UserID(fact.UserID),
		traces.TransactionType(string(fact.Type)),
		traces.Amount(fact.Value.StringFixed(2)),
	)
	defer span.End()

	start := time.Now()
	var hits []ruleHit

	for i, rule := range e.rules {
		triggered, reason, err := e.runRule(ctx, rule, fact)
		if err != nil {
			if errors.Is(err, ErrUnavailable) {
				metrics.EvaluationsTotal.WithLabelValues("error").Inc()
				return nil, fmt.Errorf("evaluate %q: %w", rule.Name(), err)
			}
			// Transient fault or rule defect: degrade to not-triggered.
			metrics.RuleFaultsTotal.WithLabelValues(rule.Name()).Inc()
			e.logger.Warn("rule fault, degraded to not-triggered",
				"rule", rule.Name(),
				"user_id", fact.UserID,
				"error", err,
			)
			continue
		}
		if triggered {
			metrics.RuleTriggeredTotal.WithLabelValues(rule.Name()).Inc()
			hits = append(hits, ruleHit{priority: rule.Priority(), order: i, reason: reason})
		}
	}

	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].priority != hits[b].priority {
			return hits[a].priority < hits[b].priority
		}
		return hits[a].order < hits[b].order
	})

	verdict := &Verdict{}
	if len(hits) > 0 {
		reasons := make([]string, len(hits))
		for i, h := range hits {
			reasons[i] = h.reason
		}
		verdict.Suspicious = true
		verdict.Reasons = strings.Join(reasons, "; ")
	}

	metrics.EvaluationDuration.Observe(time.Since(start).Seconds())
	outcome := "clean"
	if verdict.Suspicious {
		outcome = "suspicious"
	}
	metrics.EvaluationsTotal.WithLabelValues(outcome).Inc()
	span.SetAttributes(traces.Suspicious(verdict.Suspicious))

	return verdict, nil
}

// runRule evaluates a single rule, converting panics into errors so one
// defective rule cannot take down the evaluation.
func (e *Engine) runRule(ctx context.Context, rule Rule, fact *TransactionFact) (triggered bool, reason string, err error) {
	defer func() {
		if r := recover(); r != nil {
			triggered = false
			reason = ""
			err = fmt.Errorf("rule %q panicked: %v", rule.Name(), r)
		}
	}()
	return rule.Evaluate(ctx, fact, e.hist)
}
