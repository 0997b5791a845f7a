package engine

import (
	"context"
	"fmt"

	"casework/internal/domain"
	"casework/internal/report"
)

// DashboardStats computes the caseworker dashboard counters. Monthly figures
// count from the first day of the current month.
func (e Engine) DashboardStats(ctx context.Context) (domain.DashboardStats, error) {
	var s domain.DashboardStats
	month := e.monthStart()
	counters := []struct {
		name string
		dst  *int
		fn   func() (int, error)
	}{
		{"total families", &s.TotalFamilies, func() (int, error) { return e.Repo.CountFamilies(ctx, nil, nil, "") }},
		{"pending families", &s.PendingFamilies, func() (int, error) {
			return e.Repo.CountFamilies(ctx, []string{domain.FamilyPending}, nil, "")
		}},
		{"active families", &s.ActiveFamilies, func() (int, error) {
			return e.Repo.CountFamilies(ctx, []string{domain.FamilyActive, domain.FamilyAssisted}, nil, "")
		}},
		{"urgent cases", &s.UrgentCases, func() (int, error) {
			return e.Repo.CountFamilies(ctx, nil, []string{domain.UrgencyHigh, domain.UrgencyCritical}, "")
		}},
		{"monthly registrations", &s.MonthlyRegistrations, func() (int, error) { return e.Repo.CountFamilies(ctx, nil, nil, month) }},
		{"scheduled visits", &s.ScheduledVisits, func() (int, error) { return e.Repo.CountVisits(ctx, domain.VisitScheduled, "") }},
		{"completed visits", &s.CompletedVisits, func() (int, error) { return e.Repo.CountVisits(ctx, domain.VisitCompleted, month) }},
		{"pending tasks", &s.PendingTasks, func() (int, error) {
			return e.Repo.CountTasks(ctx, []string{domain.TaskPending, domain.TaskInProgress}, "")
		}},
		{"completed tasks", &s.CompletedTasks, func() (int, error) {
			return e.Repo.CountTasks(ctx, []string{domain.TaskCompleted}, month)
		}},
	}
	for _, c := range counters {
		n, err := c.fn()
		if err != nil {
			return domain.DashboardStats{}, fmt.Errorf("count %s: %w", c.name, err)
		}
		*c.dst = n
	}
	return s, nil
}

// StatisticsSnapshot is the aggregate rendered by the statistics report.
func (e Engine) StatisticsSnapshot(ctx context.Context) (report.StatisticsSnapshot, error) {
	s, err := e.DashboardStats(ctx)
	if err != nil {
		return report.StatisticsSnapshot{}, err
	}
	return SnapshotFromStats(s), nil
}

func SnapshotFromStats(s domain.DashboardStats) report.StatisticsSnapshot {
	return report.StatisticsSnapshot{
		TotalFamilies:        s.TotalFamilies,
		ActiveFamilies:       s.ActiveFamilies,
		PendingFamilies:      s.PendingFamilies,
		UrgentCases:          s.UrgentCases,
		MonthlyRegistrations: s.MonthlyRegistrations,
		MonthlyVisits:        s.CompletedVisits,
		MonthlyTasks:         s.CompletedTasks,
	}
}
