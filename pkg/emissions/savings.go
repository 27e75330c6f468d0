package emissions

// Savings compares the cleanest and dirtiest modes of a comparison.
type Savings struct {
	Lowest           Row     `json:"lowest"`
	Highest          Row     `json:"highest"`
	SavingsKg        float64 `json:"savings_kg"`
	PercentReduction float64 `json:"percent_reduction"`
}

// FindSavings picks the lowest and highest per-person rows. It reports
// false when fewer than two rows are given. Ties keep the earlier row.
func FindSavings(rows []Row) (Savings, bool) {
	if len(rows) < 2 {
		return Savings{}, false
	}
	lo, hi := rows[0], rows[0]
	for _, r := range rows[1:] {
		if r.CO2PerPersonKg < lo.CO2PerPersonKg {
			lo = r
		}
		if r.CO2PerPersonKg > hi.CO2PerPersonKg {
			hi = r
		}
	}
	s := Savings{
		Lowest:    lo,
		Highest:   hi,
		SavingsKg: hi.CO2PerPersonKg - lo.CO2PerPersonKg,
	}
	if hi.CO2PerPersonKg > 0 {
		s.PercentReduction = s.SavingsKg / hi.CO2PerPersonKg * 100
	}
	return s, true
}

// Absorption and per-capita constants for everyday comparisons.
const (
	TreeAbsorptionKgPerYear = 21.0
	PersonDailyKg           = 10.0
)

// Equivalent expresses an amount of CO2 in everyday terms.
type Equivalent struct {
	Mode         Mode    `json:"mode"`
	CO2Kg        float64 `json:"co2_kg"`
	TreesPerYear float64 `json:"trees_per_year"`
	PersonDays   float64 `json:"person_days"`
}

// Equivalents converts each row's per-person emissions into the number of
// trees absorbing it over a year and days of average personal emissions.
func Equivalents(rows []Row) []Equivalent {
	out := make([]Equivalent, len(rows))
	for i, r := range rows {
		out[i] = Equivalent{
			Mode:         r.Mode,
			CO2Kg:        r.CO2PerPersonKg,
			TreesPerYear: r.CO2PerPersonKg / TreeAbsorptionKgPerYear,
			PersonDays:   r.CO2PerPersonKg / PersonDailyKg,
		}
	}
	return out
}

var tips = []string{
	"Choose public transport whenever possible",
	"Consider carpooling for car journeys",
	"Offset your emissions through climate protection projects",
	"Avoid short-haul flights where you can",
	"Combine trips to save journeys",
}

// Tips returns general advice for reducing travel emissions.
func Tips() []string {
	out := make([]string, len(tips))
	copy(out, tips)
	return out
}
