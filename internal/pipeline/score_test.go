package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/seo-cli/internal/model"
)

func fptr(v float64) *float64 { return &v }

func TestScoreRecordDeadSpamDomain(t *testing.T) {
	rec := model.DomainRecord{
		Domain:      "spam.example.test",
		URL:         "https://spam.example.test/page",
		Rating:      fptr(5),
		Traffic:     fptr(0),
		HasNofollow: true,
		Anchors:     []string{"buy pills"},
		LinkCount:   3,
	}

	a := ScoreRecord(rec, model.DefaultMinRiskScore)

	assert.Equal(t, model.RecommendDisavow, a.Recommendation)
	assert.GreaterOrEqual(t, a.RiskScore, 80.0)
	assert.LessOrEqual(t, a.RiskScore, 100.0)
	assert.Contains(t, a.Reason, "dead site")
	assert.Equal(t, "buy pills", a.Anchor)
}

func TestScoreRecordDeadSpamIgnoresThreshold(t *testing.T) {
	rec := model.DomainRecord{
		Domain:  "spam.example.test",
		Rating:  fptr(5),
		Traffic: fptr(0),
	}

	// Zero traffic with a single-digit rating is disavowed no matter how
	// high the configured threshold is.
	a := ScoreRecord(rec, 99)
	assert.Equal(t, model.RecommendDisavow, a.Recommendation)
}

func TestScoreRecordHealthyDomain(t *testing.T) {
	rec := model.DomainRecord{
		Domain:  "good.example.test",
		Rating:  fptr(35),
		Traffic: fptr(10000),
	}

	a := ScoreRecord(rec, model.DefaultMinRiskScore)

	assert.Equal(t, model.RecommendOK, a.Recommendation)
	assert.Equal(t, 0.0, a.RiskScore)
	assert.Equal(t, "assessed from export metrics", a.Reason)
}

func TestScoreRecordMissingBothMetrics(t *testing.T) {
	rec := model.DomainRecord{Domain: "unknown.example.test"}

	a := ScoreRecord(rec, model.DefaultMinRiskScore)

	assert.Equal(t, model.RecommendAttention, a.Recommendation)
	assert.Contains(t, a.Reason, "missing key metrics")
}

func TestScoreRecordMissingBothNeverDisavows(t *testing.T) {
	rec := model.DomainRecord{Domain: "unknown.example.test"}

	// Even a threshold below the accumulated penalties cannot turn a
	// metric-less domain into a disavow verdict.
	a := ScoreRecord(rec, 1)
	assert.Equal(t, model.RecommendAttention, a.Recommendation)
}

func TestScoreRecordMissingOneMetric(t *testing.T) {
	rec := model.DomainRecord{Domain: "partial.example.test", Rating: fptr(25)}

	a := ScoreRecord(rec, model.DefaultMinRiskScore)

	assert.Equal(t, model.RecommendAttention, a.Recommendation)
	assert.Contains(t, a.Reason, "insufficient data for analysis")
}

func TestScoreRecordMissingMetricSeverity(t *testing.T) {
	none := ScoreRecord(model.DomainRecord{Rating: fptr(25), Traffic: fptr(100)}, model.DefaultMinRiskScore)
	one := ScoreRecord(model.DomainRecord{Rating: fptr(25)}, model.DefaultMinRiskScore)
	both := ScoreRecord(model.DomainRecord{}, model.DefaultMinRiskScore)

	assert.GreaterOrEqual(t, one.RiskScore, none.RiskScore)
	assert.GreaterOrEqual(t, both.RiskScore, one.RiskScore)
}

func TestScoreRecordAlwaysInRange(t *testing.T) {
	metrics := []*float64{nil, fptr(0), fptr(5), fptr(15), fptr(25), fptr(50), fptr(100000)}
	for _, rating := range metrics {
		for _, traffic := range metrics {
			for _, page := range []*float64{nil, fptr(0), fptr(10)} {
				for _, nofollow := range []bool{false, true} {
					rec := model.DomainRecord{
						Domain:         "range.example.test",
						Rating:         rating,
						Traffic:        traffic,
						AvgPageTraffic: page,
						HasNofollow:    nofollow,
					}
					a := ScoreRecord(rec, model.DefaultMinRiskScore)
					assert.GreaterOrEqual(t, a.RiskScore, 0.0)
					assert.LessOrEqual(t, a.RiskScore, 100.0)
				}
			}
		}
	}
}

func TestScoreRecordNofollowBonusAppendsNoReason(t *testing.T) {
	rec := model.DomainRecord{
		Domain:      "strong.example.test",
		Rating:      fptr(60),
		Traffic:     fptr(5000),
		HasNofollow: true,
	}

	a := ScoreRecord(rec, model.DefaultMinRiskScore)

	// Bonuses lower the score silently so a clean domain reads as clean.
	assert.Equal(t, model.RecommendOK, a.Recommendation)
	assert.Equal(t, "assessed from export metrics", a.Reason)
}

func TestHasInsufficientDataPhrase(t *testing.T) {
	assert.True(t, HasInsufficientDataPhrase("Insufficient data for this domain"))
	assert.True(t, HasInsufficientDataPhrase("no data available for assessment"))
	assert.True(t, HasInsufficientDataPhrase("missing key metrics (2 of 2)"))
	assert.False(t, HasInsufficientDataPhrase("high toxicity anchors"))
	assert.False(t, HasInsufficientDataPhrase(""))
}
