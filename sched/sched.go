// Package sched runs the periodic maintenance tasks: health snapshotting
// into the journal and capability report logging. Task failures are logged
// and retried on the next tick, never fatal.
package sched

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/northfox/foxbox/spc"
)

// HealthSink receives periodic health snapshots.
type HealthSink interface {
	RecordHealth(h spc.Health) error
}

// Scheduler manages the cron tasks around the quality monitor. Health
// snapshots look at a short trailing window; the capability report covers
// the longer analysis window.
type Scheduler struct {
	cron         *cron.Cron
	monitor      *spc.Monitor
	sink         HealthSink
	healthWindow time.Duration
	reportWindow time.Duration
	log          zerolog.Logger
}

func New(monitor *spc.Monitor, sink HealthSink, healthWindow, reportWindow time.Duration, log zerolog.Logger) *Scheduler {
	if healthWindow <= 0 {
		healthWindow = spc.DefaultHealthWindow
	}
	if reportWindow <= 0 {
		reportWindow = spc.DefaultWindow
	}
	return &Scheduler{
		cron:         cron.New(),
		monitor:      monitor,
		sink:         sink,
		healthWindow: healthWindow,
		reportWindow: reportWindow,
		log:          log.With().Str("component", "sched").Logger(),
	}
}

// Register wires the periodic tasks. healthSpec and reportSpec are standard
// five-field cron expressions.
func (s *Scheduler) Register(healthSpec, reportSpec string) error {
	if _, err := s.cron.AddFunc(healthSpec, s.healthTask); err != nil {
		return fmt.Errorf("register health task: %w", err)
	}
	if reportSpec != "" {
		if _, err := s.cron.AddFunc(reportSpec, s.reportTask); err != nil {
			return fmt.Errorf("register report task: %w", err)
		}
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("scheduler started")
}

// Stop halts scheduling and waits for running tasks to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("scheduler stopped")
}

// RunHealthNow takes one snapshot immediately, outside the schedule.
func (s *Scheduler) RunHealthNow() {
	s.healthTask()
}

func (s *Scheduler) healthTask() {
	h, err := s.monitor.Health(s.healthWindow)
	if err != nil {
		s.log.Error().Err(err).Msg("health check failed")
		return
	}
	if err := s.sink.RecordHealth(h); err != nil {
		s.log.Error().Err(err).Msg("record health snapshot failed")
		return
	}
	s.log.Info().Str("level", h.Level).Int("samples", h.SampleCount).
		Float64("error_rate", h.ErrorRate).Msg("health snapshot")
}

func (s *Scheduler) reportTask() {
	rep, err := s.monitor.Report(s.reportWindow)
	if err != nil {
		s.log.Error().Err(err).Msg("quality report failed")
		return
	}
	s.log.Info().Float64("overall_sigma", rep.OverallSigma).
		Float64("average_cpk", rep.AverageCpk).
		Bool("meets_six_sigma", rep.MeetsSixSigma).
		Int("processes", len(rep.Processes)).
		Int("pending", len(rep.PendingAnalysis)).Msg("quality report")
}
