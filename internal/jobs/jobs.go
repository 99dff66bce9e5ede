package jobs

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// StartScheduler starts the background job scheduler. The only scheduled job
// today is the price-sync log poll; pushes are triggered by the user and run
// through the manager directly.
func StartScheduler(app AppContext) *gocron.Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	startPriceLogPollJob(s, app)

	log.Println("Starting background job scheduler...")
	s.StartAsync()
	return s
}

func startPriceLogPollJob(s *gocron.Scheduler, app AppContext) {
	interval := app.Config().PriceLogs.PollInterval
	if interval == 0 {
		log.Println("Price-log poll interval is 0, scheduled polling is disabled.")
		return
	}

	jobID := "price-log-poll"
	log.Printf("Scheduling job: '%s' to run every %d minutes.", jobID, interval)

	_, err := s.Every(interval).Minutes().Do(func() {
		// Submit through the manager so a manual trigger and the schedule
		// cannot overlap.
		if err := app.JobManager().RunJob(jobID, app); err != nil {
			log.Printf("Scheduled job '%s' could not start: %v", jobID, err)
		}
	})
	if err != nil {
		log.Printf("Error scheduling '%s' job: %v", jobID, err)
	}
}
