// Package retention prunes the audit trail.
//
// A Pruner deletes records older than a maximum age and then, if a record
// cap is configured, the oldest records above the cap. A Scheduler runs the
// pruner on a cron schedule using robfig/cron.
//
//	pruner := retention.NewPruner(store, &retention.Config{
//	    MaxAge:     30 * 24 * time.Hour,
//	    MaxRecords: 1_000_000,
//	    Schedule:   "0 3 * * *",
//	}, logger)
//
//	scheduler := retention.NewScheduler(pruner, logger)
//	if err := scheduler.Start(ctx); err != nil {
//	    return err
//	}
//	defer scheduler.Stop()
package retention
