package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"levelranks/core"
)

// AggregationPeriod represents different time periods for aggregation
type AggregationPeriod string

const (
	PeriodDaily   AggregationPeriod = "daily"
	PeriodWeekly  AggregationPeriod = "weekly"
	PeriodMonthly AggregationPeriod = "monthly"
)

// AggregatedData is one period of analytics.
type AggregatedData struct {
	Period    AggregationPeriod `json:"period"`
	Key       string            `json:"key"` // e.g., "2024-01-01" for daily, "2024-W01" for weekly
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time"`

	ActivePlayers int   `json:"active_players"`
	PointsAwarded int64 `json:"points_awarded"`
	PointsLost    int64 `json:"points_lost"`
	Promotions    int64 `json:"promotions"`
	Demotions     int64 `json:"demotions"`

	CreatedAt time.Time `json:"created_at"`
}

// AggregationEngine periodically rolls Metrics up into daily, weekly and
// monthly records.
type AggregationEngine struct {
	mu sync.RWMutex

	metrics *Metrics
	log     *slog.Logger
	now     func() time.Time

	periods map[AggregationPeriod]map[string]*AggregatedData

	aggregationInterval time.Duration
}

func NewAggregationEngine(metrics *Metrics, aggregationInterval time.Duration, log *slog.Logger) *AggregationEngine {
	if log == nil {
		log = slog.Default()
	}
	return &AggregationEngine{
		metrics: metrics,
		log:     log,
		now:     time.Now,
		periods: map[AggregationPeriod]map[string]*AggregatedData{
			PeriodDaily:   {},
			PeriodWeekly:  {},
			PeriodMonthly: {},
		},
		aggregationInterval: aggregationInterval,
	}
}

// OnEvent forwards events to the underlying metrics.
func (ae *AggregationEngine) OnEvent(e core.Event) {
	ae.metrics.OnEvent(e)
}

// AggregateNow forces an immediate aggregation of all periods
func (ae *AggregationEngine) AggregateNow() {
	ae.aggregateAt(ae.now())
}

func (ae *AggregationEngine) aggregateAt(now time.Time) {
	now = now.UTC()
	ae.mu.Lock()
	defer ae.mu.Unlock()

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	ae.store(PeriodDaily, now.Format("2006-01-02"), dayStart, dayStart.AddDate(0, 0, 1), now,
		ae.metrics.DailyActive(now.Format("2006-01-02")))

	daysSinceMonday := (int(now.Weekday()) + 6) % 7
	weekStart := dayStart.AddDate(0, 0, -daysSinceMonday)
	ae.store(PeriodWeekly, getWeekKey(now), weekStart, weekStart.AddDate(0, 0, 7), now,
		ae.metrics.WeeklyActive(getWeekKey(now)))

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	ae.store(PeriodMonthly, getMonthKey(now), monthStart, monthStart.AddDate(0, 1, 0), now,
		ae.metrics.MonthlyActive(getMonthKey(now)))
}

func (ae *AggregationEngine) store(period AggregationPeriod, key string, start, end, now time.Time, active int) {
	data := &AggregatedData{
		Period:        period,
		Key:           key,
		StartTime:     start,
		EndTime:       end,
		ActivePlayers: active,
		CreatedAt:     now,
	}
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		day := d.Format("2006-01-02")
		awarded, lost := ae.metrics.PointsByDay(day)
		promotions, demotions := ae.metrics.RankMovesByDay(day)
		data.PointsAwarded += awarded
		data.PointsLost += lost
		data.Promotions += promotions
		data.Demotions += demotions
	}
	ae.periods[period][key] = data
}

// GetAggregatedData returns aggregated data for a specific period and key
func (ae *AggregationEngine) GetAggregatedData(period AggregationPeriod, key string) (*AggregatedData, bool) {
	ae.mu.RLock()
	defer ae.mu.RUnlock()
	data, ok := ae.periods[period][key]
	return data, ok
}

// GetAllAggregatedData returns all records of a period ordered by key.
func (ae *AggregationEngine) GetAllAggregatedData(period AggregationPeriod) []*AggregatedData {
	ae.mu.RLock()
	defer ae.mu.RUnlock()
	result := make([]*AggregatedData, 0, len(ae.periods[period]))
	for _, data := range ae.periods[period] {
		result = append(result, data)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result
}

// Start aggregates immediately and then on every interval until ctx ends.
func (ae *AggregationEngine) Start(ctx context.Context) {
	ticker := time.NewTicker(ae.aggregationInterval)
	defer ticker.Stop()

	ae.AggregateNow()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ae.AggregateNow()
			ae.log.Debug("analytics aggregated", "day", ae.now().UTC().Format("2006-01-02"))
		}
	}
}

// ExportData exports aggregated data to JSON format
func (ae *AggregationEngine) ExportData(period AggregationPeriod) ([]byte, error) {
	return json.MarshalIndent(ae.GetAllAggregatedData(period), "", "  ")
}

// ExportToFile writes the JSON export of a period to filename.
func (ae *AggregationEngine) ExportToFile(period AggregationPeriod, filename string) error {
	data, err := ae.ExportData(period)
	if err != nil {
		return fmt.Errorf("export %s analytics: %w", period, err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filename, err)
	}
	return nil
}
