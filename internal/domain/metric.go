package domain

import "time"

// ComponentMetric is a time series attached to a component (e.g. API
// response time) displayed on the status page.
type ComponentMetric struct {
	ID          string    `json:"id"`
	ComponentID string    `json:"component_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Suffix      string    `json:"suffix"`
	CreatedAt   time.Time `json:"created_at"`
}

// MetricPoint is a single recorded value of a component metric.
type MetricPoint struct {
	ID         string    `json:"id"`
	MetricID   string    `json:"metric_id"`
	Value      float64   `json:"value"`
	RecordedAt time.Time `json:"recorded_at"`
}
