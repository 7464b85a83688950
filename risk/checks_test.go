package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northfox/foxbox/market"
	"github.com/northfox/foxbox/signal"
)

func buyEURUSD() signal.Signal {
	return signal.New("test", "EURUSD", signal.Buy, 1.0850, 1.0800, 1.0900)
}

func baseInput() Input {
	return Input{
		Signal:         buyEURUSD(),
		Symbol:         market.Instruments["EURUSD"],
		PipValuePerLot: 10,
		Balance:        10000,
		Currency:       "USD",
	}
}

func TestCalculateApproved(t *testing.T) {
	t.Parallel()

	a := Calculate(baseInput(), DefaultPolicy())

	require.True(t, a.Approved)
	assert.Empty(t, a.RejectionReasons)
	assert.NotEmpty(t, a.ApprovalReason)

	// 100 USD budget over 50 pips at 10 USD/pip/lot -> 0.2 lots.
	assert.InDelta(t, 50.0, a.StopPips, 1e-9)
	assert.InDelta(t, 0.2, a.PositionSize, 1e-9)
	assert.InDelta(t, 100.0, a.RiskAmount, 1e-9)
	assert.InDelta(t, 0.01, a.RiskPct, 1e-9)
	assert.InDelta(t, 100.0, a.CalculationAccuracy, 1e-9)
}

func TestApprovedImpliesWithinPerTradeBudget(t *testing.T) {
	t.Parallel()

	pol := DefaultPolicy()
	// Awkward stop distances force lot clamping; risk must still come in at
	// or under the per-trade budget.
	for _, stop := range []float64{1.0803, 1.0811, 1.0837, 1.0842} {
		in := baseInput()
		in.Signal.StopLoss = stop
		a := Calculate(in, pol)
		if a.Approved {
			assert.LessOrEqual(t, a.RiskAmount/in.Balance, pol.MaxRiskPerTrade+1e-9)
			assert.Empty(t, a.RejectionReasons)
		}
	}
}

func TestClampingLowersAccuracy(t *testing.T) {
	t.Parallel()

	in := baseInput()
	in.Symbol.VolumeStep = 0.15 // coarse step, 0.2 raw lots snaps to 0.15
	a := Calculate(in, DefaultPolicy())

	require.True(t, a.Approved)
	assert.InDelta(t, 0.15, a.PositionSize, 1e-9)
	assert.InDelta(t, 75.0, a.RiskAmount, 1e-9)
	assert.InDelta(t, 75.0, a.CalculationAccuracy, 1e-9)
}

func TestBelowMinimumVolumeRejected(t *testing.T) {
	t.Parallel()

	in := baseInput()
	in.Balance = 100 // 1 USD budget cannot reach 0.01 lots over 50 pips
	a := Calculate(in, DefaultPolicy())

	assert.False(t, a.Approved)
	require.NotEmpty(t, a.RejectionReasons)
	assert.Contains(t, a.RejectionReasons[0], "minimum volume")
}

func TestAllViolationsRecorded(t *testing.T) {
	t.Parallel()

	in := baseInput()
	in.Usage = Usage{Daily: 0.019, Weekly: 0.097}
	pol := DefaultPolicy()
	a := Calculate(in, pol)

	assert.False(t, a.Approved)
	// Daily (1.9%+1% > 2%), weekly (9.7%+1% > 5%) and drawdown
	// (9.7%+1% > 10%) all fire and all are listed.
	assert.Len(t, a.RejectionReasons, 3)
	assert.Empty(t, a.ApprovalReason)
}

func TestDegradedDataCapsAccuracy(t *testing.T) {
	t.Parallel()

	in := baseInput()
	in.DegradedData = true
	a := Calculate(in, DefaultPolicy())

	require.True(t, a.Approved)
	assert.True(t, a.DegradedData)
	assert.InDelta(t, degradedAccuracyCap, a.CalculationAccuracy, 1e-9)
}

func TestUnknownSymbolRejected(t *testing.T) {
	t.Parallel()

	in := baseInput()
	in.Symbol = market.SymbolInfo{}

	a := Calculate(in, DefaultPolicy())
	require.False(t, a.Approved)
	require.Len(t, a.RejectionReasons, 1)
	assert.Contains(t, a.RejectionReasons[0], "unknown symbol EURUSD")
}

func TestUnavailablePipValueRejected(t *testing.T) {
	t.Parallel()

	in := baseInput()
	in.PipValuePerLot = 0
	a := Calculate(in, DefaultPolicy())

	assert.False(t, a.Approved)
	require.Len(t, a.RejectionReasons, 1)
	assert.Contains(t, a.RejectionReasons[0], "pip value unavailable")
}

func TestInvalidSignalRejected(t *testing.T) {
	t.Parallel()

	in := baseInput()
	in.Signal.Direction = "LONG"
	a := Calculate(in, DefaultPolicy())

	assert.False(t, a.Approved)
	require.NotEmpty(t, a.RejectionReasons)
	assert.Contains(t, a.RejectionReasons[0], "invalid signal")
}

func TestRejectionListEmptyIffApproved(t *testing.T) {
	t.Parallel()

	approved := Calculate(baseInput(), DefaultPolicy())
	assert.True(t, approved.Approved)
	assert.Empty(t, approved.RejectionReasons)

	in := baseInput()
	in.Usage = Usage{Daily: 0.05, Weekly: 0.05}
	rejected := Calculate(in, DefaultPolicy())
	assert.False(t, rejected.Approved)
	assert.NotEmpty(t, rejected.RejectionReasons)
}

func TestPolicyValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, DefaultPolicy().Validate())

	p := DefaultPolicy()
	p.MaxRiskPerTrade = 0
	assert.Error(t, p.Validate())

	p = DefaultPolicy()
	p.MaxDailyRisk = 0.005
	assert.Error(t, p.Validate())

	p = DefaultPolicy()
	p.MaxWeeklyRisk = 0.01
	assert.Error(t, p.Validate())
}
