package alerting

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/open-policy-agent/opa/v1/util"

	"geointel/internal/analytics"
)

// Query is the Rego rule every alert policy must define: a set of {kind, severity, message}.
const Query = "data.geointel.alerts.alerts"

//go:embed default_policy.rego
var defaultPolicy string

// DefaultPolicy returns the built-in Rego alert policy.
func DefaultPolicy() string { return defaultPolicy }

// OPAEvaluator evaluates a Rego policy compiled once at construction.
type OPAEvaluator struct {
	name     string
	compiler *ast.Compiler

	once     sync.Once
	prepared rego.PreparedEvalQuery
	prepErr  error
}

// NewOPAEvaluator compiles policy (Rego source). name labels the module in error messages.
func NewOPAEvaluator(name, policy string) (*OPAEvaluator, error) {
	compiler, err := ast.CompileModules(map[string]string{name: policy})
	if err != nil {
		return nil, fmt.Errorf("compile alert policy %s: %w", name, err)
	}
	return &OPAEvaluator{name: name, compiler: compiler}, nil
}

// LoadOPAEvaluator compiles the policy file at path, or the default policy when path is empty.
func LoadOPAEvaluator(path string) (*OPAEvaluator, error) {
	if path == "" {
		return NewOPAEvaluator("default_policy.rego", defaultPolicy)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read alert policy: %w", err)
	}
	return NewOPAEvaluator(filepath.Base(path), string(src))
}

func (e *OPAEvaluator) query(ctx context.Context) (rego.PreparedEvalQuery, error) {
	e.once.Do(func() {
		e.prepared, e.prepErr = rego.New(
			rego.Query(Query),
			rego.Compiler(e.compiler),
		).PrepareForEval(ctx)
	})
	return e.prepared, e.prepErr
}

// Evaluate runs the policy with input {kpis, hotspots, insights, params} and returns alerts
// ordered by severity, kind and message. A policy that leaves the rule undefined yields none.
func (e *OPAEvaluator) Evaluate(ctx context.Context, report *analytics.Report) ([]Alert, error) {
	if report == nil {
		return nil, nil
	}
	input, err := buildInput(report)
	if err != nil {
		return nil, fmt.Errorf("build input: %w", err)
	}
	return e.eval(ctx, input)
}

// HealthCheck verifies that the compiled policy evaluates against an empty report.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	input, err := buildInput(&analytics.Report{Hotspots: []analytics.Hotspot{}})
	if err != nil {
		return err
	}
	if _, err := e.eval(ctx, input); err != nil {
		return fmt.Errorf("eval %s: %w", e.name, err)
	}
	return nil
}

func (e *OPAEvaluator) eval(ctx context.Context, input any) ([]Alert, error) {
	q, err := e.query(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare query: %w", err)
	}
	rs, err := q.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, err
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return nil, nil
	}
	items, ok := rs[0].Expressions[0].Value.([]any)
	if !ok {
		return nil, fmt.Errorf("%s: expected a set, got %T", Query, rs[0].Expressions[0].Value)
	}
	alerts := make([]Alert, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s: alert must be an object, got %T", Query, item)
		}
		alerts = append(alerts, Alert{
			Kind:     stringField(obj, "kind"),
			Severity: stringField(obj, "severity"),
			Message:  stringField(obj, "message"),
		})
	}
	sort.Slice(alerts, func(i, j int) bool {
		a, b := alerts[i], alerts[j]
		if ra, rb := severityRank(a.Severity), severityRank(b.Severity); ra != rb {
			return ra < rb
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Message < b.Message
	})
	return alerts, nil
}

func stringField(obj map[string]any, key string) string {
	if s, ok := obj[key].(string); ok {
		return s
	}
	if v, ok := obj[key]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return ""
}

// buildInput round-trips the report sections through JSON so policies see the same field
// names as API clients.
func buildInput(r *analytics.Report) (map[string]any, error) {
	hotspots := r.Hotspots
	if hotspots == nil {
		hotspots = []analytics.Hotspot{}
	}
	raw, err := json.Marshal(map[string]any{
		"kpis":     r.KPIs,
		"hotspots": hotspots,
		"insights": r.Insights,
		"params":   r.Params,
	})
	if err != nil {
		return nil, err
	}
	var input map[string]any
	if err := util.UnmarshalJSON(raw, &input); err != nil {
		return nil, err
	}
	return input, nil
}
