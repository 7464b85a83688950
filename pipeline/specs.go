package pipeline

import "github.com/northfox/foxbox/spc"

// ProductionSpecs are the quality targets the pipeline measures itself
// against. Latencies in milliseconds, slippage in pips, accuracy in percent.
func ProductionSpecs() map[string]spc.Spec {
	return map[string]spc.Spec{
		spc.ProcSignalLatency:     {Target: 25, USL: 50, LSL: 0, Unit: "ms"},
		spc.ProcRiskAccuracy:      {Target: 100, USL: 100.1, LSL: 99.9, Unit: "percent"},
		spc.ProcExecutionSlippage: {Target: 1.0, USL: 2.0, LSL: 0, Unit: "pips"},
		spc.ProcExecutionLatency:  {Target: 100, USL: 500, LSL: 0, Unit: "ms"},
		spc.ProcEndToEndLatency:   {Target: 200, USL: 1000, LSL: 0, Unit: "ms"},
	}
}
