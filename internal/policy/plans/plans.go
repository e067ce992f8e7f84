// Package plans holds the purchasable plan catalog and the questionnaire
// driven recommendation rules.
package plans

import (
	"sort"

	"covergate/internal/policy/models"
)

// Plan is a purchasable catalog entry.
type Plan struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Type          models.Type `json:"type"`
	Coverage      float64     `json:"coverage"`
	Premium       float64     `json:"premium"`
	DurationYears int         `json:"durationYears"`
	Description   string      `json:"description"`
}

var catalog = []Plan{
	{
		ID: "h-basic", Name: "Standard Health Guard", Type: models.TypeHealth,
		Coverage: 500000, Premium: 150, DurationYears: 1,
		Description: "Essential health coverage for individuals. Includes hospitalization and emergency care.",
	},
	{
		ID: "h-premium", Name: "Premium Health Shield", Type: models.TypeHealth,
		Coverage: 2000000, Premium: 450, DurationYears: 1,
		Description: "Comprehensive health protection with zero co-pay and global coverage options.",
	},
	{
		ID: "l-term", Name: "Term Life Secure", Type: models.TypeLife,
		Coverage: 10000000, Premium: 800, DurationYears: 20,
		Description: "Secure your family's future with high-cover term life insurance.",
	},
	{
		ID: "l-whole", Name: "Whole Life Legacy", Type: models.TypeLife,
		Coverage: 5000000, Premium: 1200, DurationYears: 50,
		Description: "Lifetime coverage with investment benefits and maturity returns.",
	},
	{
		ID: "t-solo", Name: "Solo Traveler Safe", Type: models.TypeTravel,
		Coverage: 50000, Premium: 40, DurationYears: 1,
		Description: "Cover medical emergencies, lost baggage, and flight delays for solo trips.",
	},
	{
		ID: "t-family", Name: "Family Vacation Guard", Type: models.TypeTravel,
		Coverage: 100000, Premium: 90, DurationYears: 1,
		Description: "Complete travel protection for the whole family on domestic and international trips.",
	},
	{
		ID: "a-comp", Name: "Comprehensive Auto", Type: models.TypeAuto,
		Coverage: 1500000, Premium: 300, DurationYears: 1,
		Description: "Full protection for your car against accidents, theft, and third-party liabilities.",
	},
}

// Catalog returns the purchasable plans.
func Catalog() []Plan {
	out := make([]Plan, len(catalog))
	copy(out, catalog)
	return out
}

// Profile is the questionnaire input feeding the recommendation rules.
type Profile struct {
	Age             int     `json:"age"`
	Income          float64 `json:"income"`
	Budget          float64 `json:"budget"`
	Dependents      int     `json:"dependents"`
	TravelFrequency string  `json:"travelFrequency"`
	RiskTolerance   string  `json:"riskTolerance"`
}

// Recommendation is a scored plan suggestion.
type Recommendation struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Premium     float64 `json:"premium"`
	Type        string  `json:"type"`
	MatchScore  int     `json:"matchScore"`
}

const (
	travelFrequent    = "frequent"
	riskToleranceHigh = "High"
	riskToleranceLow  = "Low"
)

// Recommend scores a fixed set of products against the profile and returns
// them best match first. Scores are clamped to [0,100]; plans priced above
// the caller's budget are penalized heavily.
func Recommend(p Profile) []Recommendation {
	budget := p.Budget
	if budget == 0 {
		if p.Income > 0 {
			// Default budget: a tenth of monthly income.
			budget = p.Income / 12 * 0.1
		} else {
			budget = 100
		}
	}
	age := p.Age
	if age == 0 {
		age = 30
	}

	score := func(terms ...int) int {
		total := 0
		for _, t := range terms {
			total += t
		}
		return total
	}
	pick := func(cond bool, yes, no int) int {
		if cond {
			return yes
		}
		return no
	}

	recs := []Recommendation{
		{
			Name:        "Global Travel Protection",
			Description: "Comprehensive coverage for lost luggage, flight delays, and medical emergencies abroad.",
			Premium:     45,
			Type:        string(models.TypeTravel),
			MatchScore: score(
				pick(p.TravelFrequency == travelFrequent, 50, 20),
				pick(p.RiskTolerance == riskToleranceHigh, 30, 10),
			),
		},
		{
			Name:        "Family Life Secure",
			Description: "High-value life coverage with significant payout for dependents. Essential for family security.",
			Premium:     120,
			Type:        string(models.TypeLife),
			MatchScore: score(
				pick(p.Dependents > 0, 50, 10),
				pick(age > 30, 20, 10),
				pick(p.RiskTolerance == riskToleranceLow, 20, 0),
			),
		},
		{
			Name:        "Health Pro Max",
			Description: "Complete health coverage including dental, vision, and preventive care.",
			Premium:     180,
			Type:        string(models.TypeHealth),
			MatchScore: score(
				pick(age > 40, 40, 20),
				pick(p.RiskTolerance == riskToleranceLow, 30, 10),
				pick(p.Dependents > 0, 20, 0),
			),
		},
		{
			Name:        "Wealth Builder Unit Link",
			Description: "Investment-linked insurance product designed for growth and protection.",
			Premium:     250,
			Type:        "INVESTMENT",
			MatchScore: score(
				pick(budget > 200, 50, 10),
				pick(p.RiskTolerance == riskToleranceHigh, 50, 0),
				pick(age < 45, 20, 0),
			),
		},
	}

	for i := range recs {
		if recs[i].Premium > budget {
			recs[i].MatchScore -= 40
		}
		recs[i].MatchScore = min(max(recs[i].MatchScore, 0), 100)
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].MatchScore > recs[j].MatchScore })
	return recs
}
