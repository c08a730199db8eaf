// File: internal/jobs/flow_sweeper.go
package jobs

import (
	"fmt"

	"authflow_backend/internal/config"
	"authflow_backend/internal/session"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// FlowSweeperJob holds dependencies for the stale auth flow sweeper.
type FlowSweeperJob struct {
	flows         *session.Manager
	logger        *zap.Logger
	cfg           *config.Config
	cronScheduler *cron.Cron
}

// NewFlowSweeperJob creates a new FlowSweeperJob.
func NewFlowSweeperJob(
	flows *session.Manager,
	logger *zap.Logger,
	cfg *config.Config,
) *FlowSweeperJob {
	scheduler := cron.New(cron.WithLogger(NewCronLogger(logger.Named("cron"))))

	return &FlowSweeperJob{
		flows:         flows,
		logger:        logger.Named("FlowSweeperJob"),
		cfg:           cfg,
		cronScheduler: scheduler,
	}
}

// SetupAndStart schedules and starts the cron job.
func (j *FlowSweeperJob) SetupAndStart() error {
	jobSpec := j.cfg.FlowSweepSchedule // e.g., "@every 5m"
	if jobSpec == "" {
		j.logger.Warn("Flow sweep schedule not defined (FLOW_SWEEP_SCHEDULE). Job will not run.")
		return nil // Not a fatal error, just won't run
	}

	jobID, err := j.cronScheduler.AddFunc(jobSpec, j.runJob)
	if err != nil {
		j.logger.Error("Failed to schedule flow sweeper job", zap.String("spec", jobSpec), zap.Error(err))
		return err
	}

	j.logger.Info("Flow sweeper job scheduled", zap.String("spec", jobSpec), zap.Any("jobID", jobID))
	j.cronScheduler.Start()
	return nil
}

// runJob is the actual work performed by the cron job.
func (j *FlowSweeperJob) runJob() {
	j.logger.Debug("Starting flow sweep run...")
	pruned := j.flows.Prune(j.cfg.AuthFlowTTL)
	if pruned > 0 {
		j.logger.Info("Flow sweep run completed", zap.Int("flows_pruned", pruned), zap.Int("flows_active", j.flows.Len()))
	}
}

// Stop gracefully stops the cron scheduler.
func (j *FlowSweeperJob) Stop() {
	if j.cronScheduler != nil {
		j.logger.Info("Stopping flow sweeper job scheduler...")
		stopCtx := j.cronScheduler.Stop()
		<-stopCtx.Done()
		j.logger.Info("Flow sweeper job scheduler stopped gracefully.")
	}
}

// --- Cron Logger Adapter ---

// cronLogger adapts zap.Logger to cron.Logger interface.
type cronLogger struct {
	zl *zap.Logger
}

// NewCronLogger creates a new cronLogger.
func NewCronLogger(zl *zap.Logger) cron.Logger {
	return &cronLogger{zl: zl}
}

// Info logs routine messages from cron.
func (cl *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	fields := cl.parseKeysAndValues(keysAndValues...)
	cl.zl.Info(msg, fields...)
}

// Error logs error messages from cron.
func (cl *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := cl.parseKeysAndValues(keysAndValues...)
	fields = append(fields, zap.Error(err))
	cl.zl.Error(msg, fields...)
}

func (cl *cronLogger) parseKeysAndValues(keysAndValues ...interface{}) []zap.Field {
	var fields []zap.Field
	for i := 0; i < len(keysAndValues); i += 2 {
		if i+1 < len(keysAndValues) {
			fields = append(fields, zap.Any(fmt.Sprintf("%v", keysAndValues[i]), keysAndValues[i+1]))
		} else {
			fields = append(fields, zap.Any(fmt.Sprintf("%v", keysAndValues[i]), "MISSING_VALUE"))
		}
	}
	return fields
}
