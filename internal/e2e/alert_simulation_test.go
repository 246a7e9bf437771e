package e2e

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/seafood-erp/seafood-erp/internal/catalog"
	jobmetrics "github.com/seafood-erp/seafood-erp/internal/jobs"
	"github.com/seafood-erp/seafood-erp/internal/observability"
	_ "github.com/seafood-erp/seafood-erp/internal/testing/guard"
	"github.com/seafood-erp/seafood-erp/jobs"
)

var metricName = regexp.MustCompile(`seafood_[a-z_]+`)

type alertRule struct {
	Alert       string            `yaml:"alert"`
	Expr        string            `yaml:"expr"`
	For         string            `yaml:"for"`
	Labels      map[string]string `yaml:"labels"`
	Annotations map[string]string `yaml:"annotations"`
}

type alertFile struct {
	Groups []struct {
		Name  string      `yaml:"name"`
		Rules []alertRule `yaml:"rules"`
	} `yaml:"groups"`
}

type alertScenario struct {
	rule      alertRule
	actual    float64
	threshold float64
}

func loadRules(t *testing.T) []alertRule {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "deploy", "prometheus", "alerts", "seafood.yml"))
	require.NoError(t, err)
	var file alertFile
	require.NoError(t, yaml.Unmarshal(data, &file))
	var rules []alertRule
	for _, g := range file.Groups {
		rules = append(rules, g.Rules...)
	}
	require.NotEmpty(t, rules)
	return rules
}

// runbookAnchors returns the slug of every second level heading of docs/runbook.md.
func runbookAnchors(t *testing.T) map[string]bool {
	t.Helper()
	f, err := os.Open(filepath.Join("..", "..", "docs", "runbook.md"))
	require.NoError(t, err)
	defer f.Close()
	anchors := map[string]bool{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "## ") {
			continue
		}
		slug := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(line, "## ")))
		anchors[strings.ReplaceAll(slug, " ", "-")] = true
	}
	require.NoError(t, scanner.Err())
	return anchors
}

type lowStockCatalog struct {
	products []catalog.Product
}

func (c lowStockCatalog) LowStock(_ context.Context, threshold decimal.Decimal, _ int) ([]catalog.Product, error) {
	var out []catalog.Product
	for _, p := range c.products {
		if p.Active && p.OnHand.LessThanOrEqual(threshold) {
			out = append(out, p)
		}
	}
	return out, nil
}

// exportedMetrics drives every component that feeds an alert and returns the metric family names
// the server and worker registries expose.
func exportedMetrics(t *testing.T) map[string]bool {
	t.Helper()
	server := observability.NewMetrics()
	orderMetrics := observability.NewOrderMetrics(server.Registerer())
	orderMetrics.OrderCreated(decimal.NewFromInt(25))
	orderMetrics.OrderTransitioned("placed", "processing")
	orderMetrics.OrderRejected("create", "conflict")
	orderMetrics.OrderRetried("create")

	handler := server.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/orders", nil))

	workerReg := prometheus.NewRegistry()
	job := jobs.NewLowStockScanJob(lowStockCatalog{products: []catalog.Product{
		{ID: 1, Code: "SAL-01", Name: "Salmon fillet", OnHand: decimal.NewFromInt(120), Active: true},
		{ID: 2, Code: "MUS-01", Name: "Mussels", OnHand: decimal.NewFromInt(8), Active: true},
		{ID: 3, Code: "OCT-01", Name: "Octopus", OnHand: decimal.Zero, Active: false},
	}}, decimal.NewFromInt(10), nil, jobmetrics.NewMetrics(workerReg))
	task, err := jobs.NewTaskByName("low-stock")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	names := map[string]bool{}
	for _, g := range []prometheus.Gatherer{server.Registerer().(prometheus.Gatherer), workerReg} {
		families, err := g.Gather()
		require.NoError(t, err)
		for _, mf := range families {
			names[mf.GetName()] = true
			if mf.GetName() == "seafood_low_stock_products" {
				assert.Equal(t, 1.0, mf.GetMetric()[0].GetGauge().GetValue())
			}
		}
	}
	return names
}

func TestAlertRulesReferenceExportedMetrics(t *testing.T) {
	names := exportedMetrics(t)
	for _, rule := range loadRules(t) {
		refs := metricName.FindAllString(rule.Expr, -1)
		require.NotEmpty(t, refs, rule.Alert)
		for _, ref := range refs {
			base := strings.TrimSuffix(strings.TrimSuffix(strings.TrimSuffix(ref, "_bucket"), "_sum"), "_count")
			assert.True(t, names[base], "alert %s uses %s which nothing exports", rule.Alert, ref)
		}
	}
}

func TestAlertRunbooksResolve(t *testing.T) {
	anchors := runbookAnchors(t)
	for _, rule := range loadRules(t) {
		ref := rule.Annotations["runbook"]
		doc, anchor, ok := strings.Cut(ref, "#")
		require.True(t, ok, "alert %s runbook %q lacks an anchor", rule.Alert, ref)
		assert.Equal(t, "docs/runbook.md", doc)
		assert.True(t, anchors[anchor], "alert %s points at missing section #%s", rule.Alert, anchor)
	}
}

func TestAlertSimulationProducesFiringAndResolvedLogs(t *testing.T) {
	rules := map[string]alertRule{}
	for _, rule := range loadRules(t) {
		rules[rule.Alert] = rule
	}
	scenarios := []alertScenario{
		{rule: rules["HighErrorRate"], actual: 0.08, threshold: 0.05},
		{rule: rules["HighLatency"], actual: 1.4, threshold: 1},
		{rule: rules["OrderConflicts"], actual: 0.3, threshold: 0.1},
		{rule: rules["LowStockProducts"], actual: 4, threshold: 0},
	}

	var log strings.Builder
	for _, s := range scenarios {
		require.NotEmpty(t, s.rule.Alert)
		log.WriteString(renderAlertLog("FIRING", s))
		log.WriteString(renderAlertLog("RESOLVED", s))
	}
	out := log.String()
	for _, s := range scenarios {
		assert.Contains(t, out, renderAlertLog("FIRING", s))
		assert.Contains(t, out, renderAlertLog("RESOLVED", s))
		assert.Contains(t, out, "runbook="+s.rule.Annotations["runbook"])
	}
}

func renderAlertLog(state string, s alertScenario) string {
	hold, _ := time.ParseDuration(s.rule.For)
	return fmt.Sprintf("%s %s severity=%s actual=%.2f threshold=%.2f for=%s runbook=%s\n",
		state, s.rule.Alert, s.rule.Labels["severity"], s.actual, s.threshold, hold, s.rule.Annotations["runbook"])
}
