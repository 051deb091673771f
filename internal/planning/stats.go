package planning

import "github.com/ramiqadoumi/go-prodplan/internal/domain"

// Statistics are rolling aggregates over the plans in a lookback window.
type Statistics struct {
	WindowDays          int     `json:"window_days"`
	TotalPlans          int     `json:"total_plans"`
	CompletedPlans      int     `json:"completed_plans"`
	AverageEfficiency   float64 `json:"average_efficiency"`
	TotalTasks          int     `json:"total_tasks"`
	CompletedTasks      int     `json:"completed_tasks"`
	AverageTaskSeconds  float64 `json:"average_task_seconds"`
	CapacityUtilization float64 `json:"capacity_utilization"`
	OnTimeCompletion    float64 `json:"on_time_completion"`
}

// ComputeStatistics aggregates plans and their tasks into window-level
// metrics. Every division guards against a zero denominator and yields 0.
func ComputeStatistics(plans []domain.PlanWithTasks, windowDays int) Statistics {
	stats := Statistics{WindowDays: windowDays, TotalPlans: len(plans)}

	var (
		efficiencySum   float64
		availableSecSum float64
		consumedSecSum  float64
		actualSecSum    int64
		withActual      int
		onTime          int
	)
	for _, p := range plans {
		if p.Plan.Status == domain.PlanCompleted {
			stats.CompletedPlans++
		}
		efficiencySum += p.Plan.Efficiency
		availableSecSum += float64(p.Plan.AvailableSeconds())

		for i := range p.Tasks {
			t := &p.Tasks[i]
			stats.TotalTasks++
			if t.Status != domain.TaskCompleted {
				continue
			}
			stats.CompletedTasks++
			if t.ActualSeconds != nil {
				consumedSecSum += float64(*t.ActualSeconds)
				actualSecSum += *t.ActualSeconds
				withActual++
				if t.OnTime() {
					onTime++
				}
			} else {
				// No recorded actual time: fall back to the estimate.
				consumedSecSum += float64(t.EstimatedSeconds)
			}
		}
	}

	if len(plans) > 0 {
		stats.AverageEfficiency = efficiencySum / float64(len(plans))
	}
	if withActual > 0 {
		stats.AverageTaskSeconds = float64(actualSecSum) / float64(withActual)
		stats.OnTimeCompletion = float64(onTime) / float64(withActual) * 100
	}
	if availableSecSum > 0 {
		stats.CapacityUtilization = consumedSecSum / availableSecSum * 100
	}
	return stats
}
