package jobs

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// StartJobs starts the background job scheduler. The caller stops it on
// shutdown.
func StartJobs(app JobContext) *gocron.Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	startPruneJob(s, app)

	log.Println("Starting background job scheduler...")
	s.StartAsync()
	return s
}

func startPruneJob(s *gocron.Scheduler, app JobContext) {
	interval := app.Config().Jobs.PruneInterval
	if interval <= 0 {
		log.Println("Job prune interval is 0, finished extraction jobs are kept.")
		return
	}
	retention := time.Duration(app.Config().Jobs.RetentionMinutes) * time.Minute

	jobId := "extraction-job-prune"
	log.Printf("Scheduling job: '%s' to run every %d minutes.", jobId, interval)

	_, err := s.Every(interval).Minutes().Do(func() {
		removed := app.JobManager().Prune(retention)
		if removed > 0 {
			log.Printf("Scheduled job '%s' removed %d finished extraction jobs", jobId, removed)
		}
	})
	if err != nil {
		log.Printf("Error scheduling '%s' job: %v", jobId, err)
	}
}
