package scoring

import "SignalForge/internal/domain/models"

type typePair struct {
	a, b models.SignalType
}

type pairCorrelation struct {
	a, b models.SignalType
	corr float64
}

// correlationPairs is the single source of pairwise correlations. Each
// unordered pair appears at most once; lookups try both orderings.
var correlationPairs = []pairCorrelation{
	// oscillators
	{models.SignalRSI, models.SignalStochastic, 0.85},
	{models.SignalRSI, models.SignalWilliamsR, 0.82},
	{models.SignalRSI, models.SignalCCI, 0.75},
	{models.SignalStochastic, models.SignalWilliamsR, 0.90},
	{models.SignalStochastic, models.SignalCCI, 0.72},
	{models.SignalWilliamsR, models.SignalCCI, 0.70},
	// trend
	{models.SignalMACD, models.SignalEMACross, 0.78},
	{models.SignalMACD, models.SignalMomentum, 0.74},
	{models.SignalEMACross, models.SignalSMATrend, 0.80},
	{models.SignalADX, models.SignalSMATrend, 0.55},
	// volume and volatility
	{models.SignalVolumeSpike, models.SignalOBV, 0.65},
	{models.SignalVolumeSpike, models.SignalVolatilityBreakout, 0.60},
	{models.SignalBollinger, models.SignalVolatilityBreakout, 0.72},
	// cross family
	{models.SignalBollinger, models.SignalRSI, 0.45},
	{models.SignalSupportResistance, models.SignalBollinger, 0.40},
	{models.SignalRSI, models.SignalMACD, 0.35},
	// mean reversion against trend strength
	{models.SignalBollinger, models.SignalADX, -0.60},
	{models.SignalRSI, models.SignalADX, -0.52},
	{models.SignalSupportResistance, models.SignalVolatilityBreakout, -0.58},
	{models.SignalStochastic, models.SignalEMACross, -0.30},
}

// expectedPairs should have a known correlation. A lookup that misses one
// emits a diagnostic.
var expectedPairs = []typePair{
	{models.SignalRSI, models.SignalVolumeSpike},
	{models.SignalMACD, models.SignalVolumeSpike},
	{models.SignalEMACross, models.SignalVolumeSpike},
}

// signalTypeMapping translates signal types to the names used by regimeWeights.
var signalTypeMapping = map[models.SignalType]string{
	models.SignalRSI:                "RSI Oversold",
	models.SignalStochastic:         "Stochastic Oversold",
	models.SignalWilliamsR:          "Williams %R Oversold",
	models.SignalCCI:                "CCI Oversold",
	models.SignalMACD:               "MACD Bullish Cross",
	models.SignalEMACross:           "EMA Golden Cross",
	models.SignalSMATrend:           "Price Above SMA",
	models.SignalADX:                "ADX Strong Trend",
	models.SignalBollinger:          "Bollinger Lower Touch",
	models.SignalVolumeSpike:        "Volume Spike",
	models.SignalOBV:                "OBV Accumulation",
	models.SignalVolatilityBreakout: "Volatility Breakout",
	models.SignalSupportResistance:  "Support Bounce",
	models.SignalMomentum:           "Momentum Surge",
}

// regimeWeights holds effectiveness multipliers per regime and descriptive
// signal name. Unknown regimes and names resolve to 1.0.
var regimeWeights = map[models.Regime]map[string]float64{
	models.RegimeUptrend: {
		"RSI Oversold":          1.10,
		"Stochastic Oversold":   1.05,
		"Williams %R Oversold":  1.00,
		"CCI Oversold":          1.00,
		"MACD Bullish Cross":    1.40,
		"EMA Golden Cross":      1.50,
		"Price Above SMA":       1.40,
		"ADX Strong Trend":      1.30,
		"Bollinger Lower Touch": 0.90,
		"Volume Spike":          1.15,
		"OBV Accumulation":      1.20,
		"Volatility Breakout":   1.30,
		"Support Bounce":        1.20,
		"Momentum Surge":        1.35,
	},
	models.RegimeDowntrend: {
		"RSI Oversold":          0.85,
		"Stochastic Oversold":   0.80,
		"Williams %R Oversold":  0.80,
		"CCI Oversold":          0.85,
		"MACD Bullish Cross":    0.90,
		"EMA Golden Cross":      1.00,
		"Price Above SMA":       0.80,
		"ADX Strong Trend":      0.90,
		"Bollinger Lower Touch": 0.80,
		"Volume Spike":          1.10,
		"OBV Accumulation":      1.25,
		"Volatility Breakout":   1.00,
		"Support Bounce":        0.85,
		"Momentum Surge":        0.95,
	},
	models.RegimeRanging: {
		"RSI Oversold":          1.50,
		"Stochastic Oversold":   1.60,
		"Williams %R Oversold":  1.50,
		"CCI Oversold":          1.40,
		"MACD Bullish Cross":    0.85,
		"EMA Golden Cross":      0.80,
		"Price Above SMA":       0.85,
		"ADX Strong Trend":      0.80,
		"Bollinger Lower Touch": 1.70,
		"Volume Spike":          1.00,
		"OBV Accumulation":      1.00,
		"Volatility Breakout":   1.20,
		"Support Bounce":        1.60,
		"Momentum Surge":        0.90,
	},
}

var importanceWeights = map[models.SignalType]float64{
	models.SignalRSI:                1.20,
	models.SignalStochastic:         1.00,
	models.SignalWilliamsR:          0.90,
	models.SignalCCI:                0.90,
	models.SignalMACD:               1.30,
	models.SignalEMACross:           1.25,
	models.SignalSMATrend:           1.10,
	models.SignalADX:                1.15,
	models.SignalBollinger:          1.10,
	models.SignalVolumeSpike:        1.20,
	models.SignalOBV:                1.00,
	models.SignalVolatilityBreakout: 1.30,
	models.SignalSupportResistance:  1.15,
	models.SignalMomentum:           1.05,
}

// synergyPairs are complementary combinations, e.g. momentum plus trend confirmation.
var synergyPairs = []typePair{
	{models.SignalRSI, models.SignalMACD},
	{models.SignalRSI, models.SignalVolumeSpike},
	{models.SignalMACD, models.SignalVolumeSpike},
	{models.SignalEMACross, models.SignalADX},
	{models.SignalBollinger, models.SignalRSI},
	{models.SignalVolatilityBreakout, models.SignalVolumeSpike},
	{models.SignalSupportResistance, models.SignalRSI},
	{models.SignalMACD, models.SignalADX},
}

const (
	correlationThreshold   = 0.70
	penaltyScale           = 0.10
	maxCorrelationPenalty  = 0.25
	negativeCorrThreshold  = -0.5
	bonusScale             = 0.20
	maxCorrelationBonus    = 0.30
	contextBonusScale      = 0.10
	synergyPerPair         = 0.10
	maxSynergyBonus        = 0.30
	diversityPerType       = 0.05
	maxDiversityBonus      = 0.20
	defaultLearningRate    = 0.1
	defaultMinSamples      = 10
	neutralRate            = 0.5
	recommendPenalty       = 0.10
	recommendConfidence    = 0.6
	recommendQuality       = 0.4
	recommendTotalStrength = 100
	recommendBonus         = 0.10
)
