// Package pipeline orchestrates a signal through the six processing stages:
// detection, validation, intake, risk assessment, execution and monitoring.
// A failed stage stops the run; the stages behind it are skipped, never run
// on bad input. Every run carries a correlation id through logs, journal
// rows and quality measurements.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/northfox/foxbox/broker"
	"github.com/northfox/foxbox/journal"
	"github.com/northfox/foxbox/market"
	"github.com/northfox/foxbox/pipvalue"
	"github.com/northfox/foxbox/pkg/id"
	"github.com/northfox/foxbox/risk"
	"github.com/northfox/foxbox/signal"
	"github.com/northfox/foxbox/spc"
	"github.com/northfox/foxbox/weekly"
)

// Journal is the audit-trail surface the pipeline writes to.
type Journal interface {
	RecordSignal(s signal.Signal) error
	UpdateSignalStatus(id string, status signal.Status) error
	RecordAssessment(a risk.Assessment) error
	RecordExecution(e journal.ExecutionRecord) error
}

// StageResult is the outcome of one pipeline stage.
type StageResult struct {
	Stage      signal.Stage `json:"stage"`
	OK         bool         `json:"ok"`
	DurationMs float64      `json:"duration_ms"`
	Detail     string       `json:"detail,omitempty"`
}

// Result is the full outcome of one signal run. Rejection is a normal
// result, not an error; Err is set only for infrastructure faults.
type Result struct {
	CorrelationID string                 `json:"correlation_id"`
	Signal        signal.Signal          `json:"signal"`
	Stages        []StageResult          `json:"stages"`
	Assessment    *risk.Assessment       `json:"assessment,omitempty"`
	Strategy      *weekly.StrategyContext `json:"strategy,omitempty"`
	BreakEven     *weekly.BreakEven      `json:"break_even,omitempty"`
	Fill          *broker.OrderFill      `json:"fill,omitempty"`
	Executed      bool                   `json:"executed"`
	Err           string                 `json:"error,omitempty"`
}

// LastStage names the furthest stage that ran.
func (r Result) LastStage() signal.Stage {
	if len(r.Stages) == 0 {
		return ""
	}
	return r.Stages[len(r.Stages)-1].Stage
}

type Pipeline struct {
	broker     broker.Broker
	resolver   *pipvalue.Resolver
	policy     risk.Policy
	tracker    *risk.Tracker
	weekly     *weekly.Manager
	monitor    *spc.Monitor
	journal    Journal
	specs      map[string]spc.Spec
	bufferPips float64
	log        zerolog.Logger
}

type Option func(*Pipeline)

// WithSpecs overrides the quality targets measurements are recorded
// against.
func WithSpecs(specs map[string]spc.Spec) Option {
	return func(p *Pipeline) { p.specs = specs }
}

// WithBreakEvenBuffer sets the pips added past entry when the stop moves
// to break-even on upgraded trades.
func WithBreakEvenBuffer(pips float64) Option {
	return func(p *Pipeline) { p.bufferPips = pips }
}

func New(b broker.Broker, resolver *pipvalue.Resolver, pol risk.Policy, tracker *risk.Tracker,
	wm *weekly.Manager, monitor *spc.Monitor, jrnl Journal, log zerolog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		broker:   b,
		resolver: resolver,
		policy:   pol,
		tracker:  tracker,
		weekly:   wm,
		monitor:  monitor,
		journal:  jrnl,
		specs:    ProductionSpecs(),
		log:      log.With().Str("component", "pipeline").Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs one signal through every stage it qualifies for and returns
// the full trace. The returned error covers journal faults only; business
// rejections land in the Result.
func (p *Pipeline) Process(ctx context.Context, sig signal.Signal) (Result, error) {
	corrID := id.New()
	log := p.log.With().Str("correlation_id", corrID).Str("signal_id", sig.ID).Str("symbol", sig.Symbol).Logger()
	runStart := time.Now()

	res := Result{CorrelationID: corrID, Signal: sig}

	// DETECTED marks intake of the raw signal.
	res.Stages = append(res.Stages, StageResult{Stage: signal.StageDetected, OK: true})
	log.Info().Str("direction", string(sig.Direction)).Float64("entry", sig.EntryPrice).Msg("signal detected")

	// VALIDATED
	stageStart := time.Now()
	if err := sig.Validate(); err != nil {
		res.Stages = append(res.Stages, stageResult(signal.StageValidated, stageStart, false, err.Error()))
		log.Warn().Err(err).Msg("signal rejected at validation")
		return res, nil
	}
	res.Stages = append(res.Stages, stageResult(signal.StageValidated, stageStart, true, ""))

	// RECEIVED persists the signal before any decision is made on it.
	stageStart = time.Now()
	if err := p.journal.RecordSignal(sig); err != nil {
		res.Stages = append(res.Stages, stageResult(signal.StageReceived, stageStart, false, err.Error()))
		res.Err = err.Error()
		return res, err
	}
	res.Stages = append(res.Stages, stageResult(signal.StageReceived, stageStart, true, ""))

	// RISK_ASSESSED. The budget checks inside assess run against a usage
	// snapshot; the reservation re-checks and commits atomically so
	// concurrent signals cannot all approve against the same stale figures.
	stageStart = time.Now()
	assessment := p.assess(ctx, sig, log)
	if assessment.Approved && !p.tracker.Reserve(&assessment, p.policy) {
		log.Warn().Float64("risk_pct", assessment.RiskPct).
			Msg("budget reservation lost to a concurrent trade")
	}
	res.Assessment = &assessment
	p.record(spc.ProcSignalLatency, msSince(stageStart), corrID, log)
	p.record(spc.ProcRiskAccuracy, assessment.CalculationAccuracy, corrID, log)

	if err := p.journal.RecordAssessment(assessment); err != nil {
		res.Stages = append(res.Stages, stageResult(signal.StageRiskAssessed, stageStart, false, err.Error()))
		res.Err = err.Error()
		return res, err
	}

	if !assessment.Approved {
		detail := "rejected"
		if len(assessment.RejectionReasons) > 0 {
			detail = assessment.RejectionReasons[0]
		}
		res.Stages = append(res.Stages, stageResult(signal.StageRiskAssessed, stageStart, false, detail))
		if err := p.journal.UpdateSignalStatus(sig.ID, signal.StatusRejected); err != nil {
			res.Err = err.Error()
			return res, err
		}
		res.Signal.Status = signal.StatusRejected
		log.Warn().Strs("reasons", assessment.RejectionReasons).Msg("signal rejected by risk checks")
		return res, nil
	}
	res.Stages = append(res.Stages, stageResult(signal.StageRiskAssessed, stageStart, true, assessment.ApprovalReason))
	if err := p.journal.UpdateSignalStatus(sig.ID, signal.StatusApproved); err != nil {
		res.Err = err.Error()
		return res, err
	}
	res.Signal.Status = signal.StatusApproved

	// Attach the weekly strategy decision and, on the upgraded template,
	// the break-even management plan.
	strat := p.weekly.StrategyForAnalysis(sig.Symbol)
	res.Strategy = &strat
	if strat.BreakEvenLogicRequired && sig.TakeProfit > 0 {
		var buffer float64
		if info, ok := market.Instruments[sig.Symbol]; ok {
			buffer = p.bufferPips * info.PipSize()
		}
		be := weekly.CalculateBreakEven(sig.EntryPrice, sig.StopLoss, sig.TakeProfit, sig.Direction, buffer)
		res.BreakEven = &be
	}

	// EXECUTED
	stageStart = time.Now()
	fill, err := p.execute(ctx, sig, assessment, corrID, log)
	p.record(spc.ProcExecutionLatency, msSince(stageStart), corrID, log)
	if err != nil {
		res.Stages = append(res.Stages, stageResult(signal.StageExecuted, stageStart, false, err.Error()))
		log.Error().Err(err).Msg("order execution failed")
		return res, nil
	}
	res.Fill = &fill
	res.Executed = true
	res.Stages = append(res.Stages, stageResult(signal.StageExecuted, stageStart, true, fill.Ticket))
	if err := p.journal.UpdateSignalStatus(sig.ID, signal.StatusExecuted); err != nil {
		res.Err = err.Error()
		return res, err
	}
	res.Signal.Status = signal.StatusExecuted

	// MONITORED closes the run with the end-to-end quality sample.
	stageStart = time.Now()
	p.record(spc.ProcEndToEndLatency, msSince(runStart), corrID, log)
	res.Stages = append(res.Stages, stageResult(signal.StageMonitored, stageStart, true, ""))

	log.Info().Str("ticket", fill.Ticket).Float64("lots", fill.FilledVolume).Msg("signal fully processed")
	return res, nil
}

// assess gathers account, symbol and pip value data, degrading to policy
// defaults when the broker is unreachable, then runs the risk decision.
func (p *Pipeline) assess(ctx context.Context, sig signal.Signal, log zerolog.Logger) risk.Assessment {
	start := time.Now()
	degraded := false

	balance := p.policy.DefaultBalance
	currency := p.policy.DefaultCurrency
	if acct, err := p.broker.GetAccount(ctx); err != nil {
		degraded = true
		log.Warn().Err(err).Msg("account unavailable, using policy defaults")
	} else {
		balance = acct.Balance
		currency = acct.Currency
	}

	info, err := p.broker.GetSymbolInfo(ctx, sig.Symbol)
	if err != nil {
		degraded = true
		if known, ok := market.Instruments[sig.Symbol]; ok {
			info = known
			log.Warn().Err(err).Msg("symbol info unavailable, using static instrument table")
		} else {
			log.Warn().Err(err).Msg("symbol unknown to the terminal and the instrument table")
		}
	}

	pipValue, err := p.resolver.Resolve(ctx, sig.Symbol, 1.0, currency)
	if err != nil {
		if errors.Is(err, pipvalue.ErrUnavailable) {
			pipValue = p.policy.DefaultPipValue
			degraded = true
			log.Warn().Err(err).Msg("pip value unavailable, using policy default")
		} else {
			pipValue = 0
		}
	}

	a := risk.Calculate(risk.Input{
		Signal:         sig,
		Symbol:         info,
		PipValuePerLot: pipValue,
		Balance:        balance,
		Currency:       currency,
		Usage:          p.tracker.Snapshot(),
		DegradedData:   degraded,
	}, p.policy)
	a.ProcessingMs = msSince(start)
	return a
}

func (p *Pipeline) execute(ctx context.Context, sig signal.Signal, a risk.Assessment, corrID string, log zerolog.Logger) (broker.OrderFill, error) {
	sl, tp := sig.StopLoss, sig.TakeProfit
	req := broker.OrderRequest{
		Symbol: sig.Symbol,
		Side:   string(sig.Direction),
		Lots:   a.PositionSize,
	}
	if sl > 0 {
		req.StopLoss = &sl
	}
	if tp > 0 {
		req.TakeProfit = &tp
	}

	fill, err := p.broker.PlaceOrder(ctx, req)
	if err != nil {
		return broker.OrderFill{}, err
	}

	slippage := 0.0
	if info, err := p.broker.GetSymbolInfo(ctx, sig.Symbol); err == nil {
		slippage = info.PipsBetween(sig.EntryPrice, fill.FilledPrice)
	}
	p.record(spc.ProcExecutionSlippage, slippage, corrID, log)

	if err := p.journal.RecordExecution(journal.ExecutionRecord{
		Ticket:       fill.Ticket,
		SignalID:     sig.ID,
		Symbol:       fill.Symbol,
		Side:         string(sig.Direction),
		Lots:         fill.FilledVolume,
		FillPrice:    fill.FilledPrice,
		SlippagePips: slippage,
		ExecutedAt:   time.Now().UTC(),
	}); err != nil {
		return broker.OrderFill{}, err
	}
	return fill, nil
}

// record emits one quality measurement; monitoring failures never block the
// trading path.
func (p *Pipeline) record(process string, value float64, corrID string, log zerolog.Logger) {
	spec, ok := p.specs[process]
	if !ok {
		return
	}
	m := spc.NewMeasurement(process, value, spec, corrID)
	if err := p.monitor.Record(m); err != nil {
		log.Warn().Err(err).Str("process", process).Msg("quality measurement dropped")
	}
}

func stageResult(stage signal.Stage, start time.Time, ok bool, detail string) StageResult {
	return StageResult{Stage: stage, OK: ok, DurationMs: msSince(start), Detail: detail}
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
