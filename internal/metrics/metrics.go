// Package metrics exposes Prometheus metrics for analyses and applications.
package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"jobtracker/internal/analyzer"
	"jobtracker/internal/models"
)

const namespace = "jobtracker"

var (
	keywordOutcomeDesc = prometheus.NewDesc(
		namespace+"_keyword_outcomes_total",
		"Total times a job-description keyword was matched or missing in a resume",
		[]string{"keyword", "outcome"},
		nil,
	)
	applicationsDesc = prometheus.NewDesc(
		namespace+"_applications",
		"Tracked applications by status",
		[]string{"status"},
		nil,
	)
	usersDesc = prometheus.NewDesc(
		namespace+"_users",
		"Registered users",
		nil,
		nil,
	)
)

// Source is the data the collector reads on each scrape.
type Source interface {
	GetKeywordOutcomes(ctx context.Context) ([]models.KeywordOutcome, error)
	CountApplicationsByStatus(ctx context.Context) (map[string]int64, error)
	GetUserCount(ctx context.Context) (int, error)
}

// Collector is a custom Prometheus collector that reads counts from the
// database on each scrape.
type Collector struct {
	src     Source
	timeout time.Duration
}

// NewCollector creates a collector over src.
func NewCollector(src Source) *Collector {
	return &Collector{src: src, timeout: 5 * time.Second}
}

// Describe sends the metric descriptors to the channel.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- keywordOutcomeDesc
	ch <- applicationsDesc
	ch <- usersDesc
}

// Collect queries the database and emits the current values. A failing query
// drops only its own metric family.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if outcomes, err := c.src.GetKeywordOutcomes(ctx); err != nil {
		slog.Error("failed to collect keyword outcome metrics", "error", err)
	} else {
		for _, o := range outcomes {
			ch <- prometheus.MustNewConstMetric(keywordOutcomeDesc, prometheus.CounterValue, float64(o.Count), o.Keyword, o.Outcome)
		}
	}

	if counts, err := c.src.CountApplicationsByStatus(ctx); err != nil {
		slog.Error("failed to collect application metrics", "error", err)
	} else {
		for status, n := range counts {
			ch <- prometheus.MustNewConstMetric(applicationsDesc, prometheus.GaugeValue, float64(n), status)
		}
	}

	if n, err := c.src.GetUserCount(ctx); err != nil {
		slog.Error("failed to collect user metrics", "error", err)
	} else {
		ch <- prometheus.MustNewConstMetric(usersDesc, prometheus.GaugeValue, float64(n))
	}
}

// OutcomeStore persists per-keyword outcome counts.
type OutcomeStore interface {
	IncrementKeywordOutcome(ctx context.Context, keyword, outcome string) error
}

// Recorder records analysis results. A nil *Recorder is a no-op.
type Recorder struct {
	store    OutcomeStore
	tracked  map[string]struct{}
	analyses *prometheus.CounterVec
	match    prometheus.Histogram
	wg       sync.WaitGroup
}

// NewRecorder creates a recorder and registers its metrics with reg.
// store may be nil, in which case keyword outcomes are not persisted.
// Only vocabulary terms are persisted so that free-form job-description
// text cannot grow the outcome table or the keyword label set.
func NewRecorder(reg prometheus.Registerer, store OutcomeStore) *Recorder {
	tracked := make(map[string]struct{})
	for _, term := range analyzer.Vocabulary() {
		tracked[term] = struct{}{}
	}

	r := &Recorder{
		store:   store,
		tracked: tracked,
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Resume analyses performed, by match band",
		}, []string{"band"}),
		match: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_match_percentage",
			Help:      "Distribution of resume match percentages",
			Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),
	}
	reg.MustRegister(r.analyses, r.match)
	return r
}

// Register registers the database-backed collector and a recorder with reg.
func Register(reg prometheus.Registerer, src Source, store OutcomeStore) *Recorder {
	reg.MustRegister(NewCollector(src))
	return NewRecorder(reg, store)
}

// RecordAnalysis counts the report and asynchronously persists the outcome
// of each vocabulary keyword in it.
func (r *Recorder) RecordAnalysis(report analyzer.Report) {
	if r == nil {
		return
	}

	r.analyses.WithLabelValues(string(report.Band())).Inc()
	r.match.Observe(float64(report.MatchPercentage))

	if r.store == nil {
		return
	}

	matched := r.vocabularyTerms(report.MatchedKeywords)
	missing := r.vocabularyTerms(report.MissingKeywords)
	if len(matched) == 0 && len(missing) == 0 {
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		r.persist(ctx, matched, models.OutcomeMatched)
		r.persist(ctx, missing, models.OutcomeMissing)
	}()
}

func (r *Recorder) vocabularyTerms(keywords []string) []string {
	var out []string
	for _, kw := range keywords {
		if _, ok := r.tracked[kw]; ok {
			out = append(out, kw)
		}
	}
	return out
}

func (r *Recorder) persist(ctx context.Context, keywords []string, outcome string) {
	for _, kw := range keywords {
		if err := r.store.IncrementKeywordOutcome(ctx, kw, outcome); err != nil {
			slog.Error("failed to record keyword outcome", "keyword", kw, "outcome", outcome, "error", err)
		}
	}
}

// Wait blocks until pending outcome writes finish.
func (r *Recorder) Wait() {
	if r == nil {
		return
	}
	r.wg.Wait()
}
