package monitoring

import (
	"context"
	"fmt"
	"math"
	"sync"

	sdkcw "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/sirupsen/logrus"

	"github.com/farmstand-app/orderflow/internal/aws"
)

// Health status values returned by HealthStatus.
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
	StatusCritical = "critical"
)

// Threshold tiers for the accumulated counters.
const (
	warnValidationErrors = 10
	critValidationErrors = 50

	warnCalculationMismatches = 5
	critCalculationMismatches = 20

	warnDataQualityIssues = 3
	critDataQualityIssues = 15
)

// CalculationMismatch describes a derived numeric value that deviated from its
// recomputed expectation beyond the allowed tolerance. The order pipeline
// auto-corrects the stored value; this record exists for observability only.
type CalculationMismatch struct {
	Type       string  // e.g. "line_subtotal", "order_total"
	Expected   float64
	Actual     float64
	Difference float64
	Tolerance  float64
	OrderID    string
	ProductID  string
}

// Health aggregates the counters against the threshold tiers.
type Health struct {
	Status  string         `json:"status"`
	Issues  []string       `json:"issues"`
	Metrics map[string]int `json:"metrics"`
}

// Monitor is an injectable metrics accumulator. Instances are independent so
// tests can observe counters in isolation; nothing here is process-global.
// Every Record* method is safe for concurrent use and never returns an error.
type Monitor struct {
	mu                    sync.Mutex
	validationErrors      int
	calculationMismatches int
	dataQualityIssues     int
	patternSuccesses      int

	log        *logrus.Logger
	cloudwatch aws.CloudWatchAPI // optional; nil disables metric export
	namespace  string
}

// NewMonitor returns a Monitor logging through log. cw may be nil, in which
// case counters are kept locally only.
func NewMonitor(log *logrus.Logger, cw aws.CloudWatchAPI, namespace string) *Monitor {
	if log == nil {
		log = logrus.New()
	}
	return &Monitor{log: log, cloudwatch: cw, namespace: namespace}
}

// RecordValidationError counts a failed validation. scope names the call site
// (e.g. "submit_order"); errs carries the user-facing messages.
func (m *Monitor) RecordValidationError(scope string, errs []string) {
	m.mu.Lock()
	m.validationErrors++
	m.mu.Unlock()

	m.log.WithFields(logrus.Fields{
		"component":  "validation",
		"scope":  scope,
		"errors": errs,
	}).Warn("validation failed")

	m.putMetric("ValidationErrors", 1)
}

// RecordPatternSuccess counts a successful validation pass for health ratios.
func (m *Monitor) RecordPatternSuccess(scope string) {
	m.mu.Lock()
	m.patternSuccesses++
	m.mu.Unlock()

	m.putMetric("ValidationSuccesses", 1)
}

// RecordDataQualityIssue counts a record that had to be skipped or repaired.
func (m *Monitor) RecordDataQualityIssue(scope, detail string) {
	m.mu.Lock()
	m.dataQualityIssues++
	m.mu.Unlock()

	m.log.WithFields(logrus.Fields{
		"component":  "data_quality",
		"scope":  scope,
		"detail": detail,
	}).Warn("data quality issue")

	m.putMetric("DataQualityIssues", 1)
}

// RecordCalculationMismatch counts a numeric reconciliation failure. Severity
// of the log entry scales with how many multiples of the tolerance the
// difference represents.
func (m *Monitor) RecordCalculationMismatch(mm CalculationMismatch) {
	m.mu.Lock()
	m.calculationMismatches++
	m.mu.Unlock()

	fields := logrus.Fields{
		"component":      "reconciliation",
		"type":       mm.Type,
		"expected":   mm.Expected,
		"actual":     mm.Actual,
		"difference": mm.Difference,
		"tolerance":  mm.Tolerance,
	}
	if mm.OrderID != "" {
		fields["order_id"] = mm.OrderID
	}
	if mm.ProductID != "" {
		fields["product_id"] = mm.ProductID
	}

	entry := m.log.WithFields(fields)
	switch ratio := severityRatio(mm); {
	case ratio > 10:
		entry.Error("calculation mismatch")
	case ratio > 2:
		entry.Warn("calculation mismatch")
	default:
		entry.Info("calculation mismatch")
	}

	m.putMetric("CalculationMismatches", 1)
}

func severityRatio(mm CalculationMismatch) float64 {
	if mm.Tolerance <= 0 {
		return math.Inf(1)
	}
	return math.Abs(mm.Difference) / mm.Tolerance
}

// HealthStatus evaluates the counters against the warning and critical tiers.
func (m *Monitor) HealthStatus() Health {
	m.mu.Lock()
	ve, cm, dq, ps := m.validationErrors, m.calculationMismatches, m.dataQualityIssues, m.patternSuccesses
	m.mu.Unlock()

	h := Health{
		Status: StatusHealthy,
		Metrics: map[string]int{
			"validation_errors":      ve,
			"calculation_mismatches": cm,
			"data_quality_issues":    dq,
			"pattern_successes":      ps,
		},
	}

	check := func(value, warn, crit int, label string) {
		switch {
		case value >= crit:
			h.Status = StatusCritical
			h.Issues = append(h.Issues, fmt.Sprintf("%s at critical level (%d)", label, value))
		case value >= warn:
			if h.Status != StatusCritical {
				h.Status = StatusDegraded
			}
			h.Issues = append(h.Issues, fmt.Sprintf("%s elevated (%d)", label, value))
		}
	}
	check(ve, warnValidationErrors, critValidationErrors, "validation errors")
	check(cm, warnCalculationMismatches, critCalculationMismatches, "calculation mismatches")
	check(dq, warnDataQualityIssues, critDataQualityIssues, "data quality issues")

	return h
}

// Reset zeroes all counters. Intended for tests and explicit operator action.
func (m *Monitor) Reset() {
	m.mu.Lock()
	m.validationErrors = 0
	m.calculationMismatches = 0
	m.dataQualityIssues = 0
	m.patternSuccesses = 0
	m.mu.Unlock()
}

// putMetric exports a counter datapoint. Export is best-effort and detached:
// a slow or failing CloudWatch call must never block or fail the caller.
func (m *Monitor) putMetric(name string, value float64) {
	if m.cloudwatch == nil {
		return
	}
	go func() {
		input := &sdkcw.PutMetricDataInput{
			Namespace: &m.namespace,
			MetricData: []cwtypes.MetricDatum{
				{MetricName: &name, Value: &value},
			},
		}
		if _, err := m.cloudwatch.PutMetricData(context.Background(), input); err != nil {
			m.log.WithFields(logrus.Fields{"component": "monitoring", "metric": name}).
				Warnf("metric export failed: %v", err)
		}
	}()
}
