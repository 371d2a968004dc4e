package points

const (
	SexMale   = "M"
	SexFemale = "W"
)

// Thresholds is the [min, max] velocity window (km/h) for one age band and sex.
// At or below Min a sample earns 1 point, at or above Max it earns 2.
type Thresholds struct {
	Min float64
	Max float64
}

// Policy maps age band (20..70 by decade) and sex to velocity thresholds.
// It is injected into the calculator so tests can swap custom bands.
type Policy map[int]map[string]Thresholds

// Lookup returns the thresholds for a band/sex pair.
func (p Policy) Lookup(band int, sex string) (Thresholds, bool) {
	bySex, ok := p[band]
	if !ok {
		return Thresholds{}, false
	}
	th, ok := bySex[sex]
	return th, ok
}

// DefaultPolicy is the production threshold table. Walking pace floors and
// running pace ceilings decline with age; women's windows sit slightly below
// men's.
func DefaultPolicy() Policy {
	return Policy{
		20: {SexMale: {Min: 5.0, Max: 9.0}, SexFemale: {Min: 4.5, Max: 8.0}},
		30: {SexMale: {Min: 4.8, Max: 8.5}, SexFemale: {Min: 4.3, Max: 7.5}},
		40: {SexMale: {Min: 4.6, Max: 8.0}, SexFemale: {Min: 4.1, Max: 7.0}},
		50: {SexMale: {Min: 4.4, Max: 7.5}, SexFemale: {Min: 3.9, Max: 6.5}},
		60: {SexMale: {Min: 4.2, Max: 7.0}, SexFemale: {Min: 3.7, Max: 6.0}},
		70: {SexMale: {Min: 4.0, Max: 6.5}, SexFemale: {Min: 3.5, Max: 5.5}},
	}
}
