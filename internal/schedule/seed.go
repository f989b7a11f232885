package schedule

import "chronos/internal/model"

// SeedSample adds the demo items shown on first launch, relative to today.
// Startup data is loaded as-is and does not schedule reminders.
func SeedSample(s *Store, today model.Date) {
	s.load(
		model.NewEvent("Design Sync", today,
			model.NewTimeOfDay(10, 0, 0), model.NewTimeOfDay(11, 0, 0),
			model.WithDetails("Weekly team sync")),
		model.NewTask("Update UI Components", today,
			model.WithDetails("Apply M3 guidelines"),
			model.WithDeadline(today.AddDays(2), nil)),
		model.NewAllDayEvent("Project Launch", today.AddDays(1)),
		model.NewTask("Submit Report", today,
			model.WithDeadline(today, nil),
			model.WithPriority(model.PriorityHigh)),
	)
}
