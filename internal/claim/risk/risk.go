// Package risk scores claims with a deterministic rule set. The score feeds
// the adjudication queue ordering; it never blocks submission.
package risk

import "time"

// Assessment is the result of scoring a claim.
type Assessment struct {
	Score   int      `json:"score"`
	Factors []string `json:"factors"`
}

const (
	factorHighAmount     = "High Claim Amount (> $10k)"
	factorModerateAmount = "Moderate Claim Amount"
	factorLateReporting  = "Late Reporting (> 30 days)"
)

// Score rates a claim on [0,100]. Amount and reporting delay each contribute
// independently; factors are appended in rule order so the output is
// deterministic for a given input.
func Score(amount float64, incidentDate, now time.Time) Assessment {
	score := 0
	var factors []string

	switch {
	case amount > 10000:
		score += 40
		factors = append(factors, factorHighAmount)
	case amount > 5000:
		score += 20
		factors = append(factors, factorModerateAmount)
	}

	if now.Sub(incidentDate).Hours()/24 > 30 {
		score += 30
		factors = append(factors, factorLateReporting)
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return Assessment{Score: score, Factors: factors}
}
