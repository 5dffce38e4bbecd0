package certification

import "carbon-registry/certification-service/internal/domain"

// Credit award bounds. Anything outside this range after the coefficient
// formula is clamped.
const (
	MinCredits int64 = 1
	MaxCredits int64 = 100000
)

// DefaultCoefficients are per-type sequestration intensity assumptions in
// credits per hectare. The figures are placeholders pending a reviewed
// methodology table; operators override them in configuration.
var DefaultCoefficients = map[domain.ProjectType]float64{
	domain.TypeReforestation:      4.5,
	domain.TypeConservation:       2.0,
	domain.TypeAgroforestry:       4.0,
	domain.TypeMangroveProtection: 6.0,
	domain.TypeRenewableEnergy:    3.0,
}
