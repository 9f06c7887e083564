package hatanaka

import (
	"fmt"

	"github.com/bkg-gnss/crinex/pkg/gnss"
	"github.com/go-playground/validator/v10"
)

// HeaderView is the immutable projection of RINEX header fields the codec
// consumes. It is borrowed for the lifetime of a Decompressor/Compressor and
// is never mutated by either. Construction and full header parsing live in
// package rinex; HeaderView is the narrow slice of that header the codec
// actually queries.
type HeaderView struct {
	// Major is the RINEX major revision: 1 or 2 select the 80-column,
	// line-wrapped v1/v2 layout; 3 (or above) selects the one-SV-per-line
	// v3+ layout.
	Major int `validate:"required,gte=1"`

	// Observables maps each constellation to its ordered list of
	// observable codes. SBAS-class constellations and any header that
	// declares a single "Mixed" list are resolved through obsListKey.
	Observables map[gnss.System][]string `validate:"required,min=1"`

	// Mixed indicates the header declares one shared observable list for
	// all constellations (RINEX-2 "MIXED" files), overriding per-
	// constellation lookup.
	Mixed bool

	// ClockOffsetApplied hints whether a per-epoch clock offset field is
	// present in the stream, used only for documentation; the codec
	// always tries to parse whatever clock line is actually present.
	ClockOffsetApplied bool

	// DefaultSystem supplies the constellation for legacy v1/v2 SV tokens
	// whose letter column is blank.
	DefaultSystem gnss.System
}

var hdrValidate *validator.Validate

// Validate checks the structural invariants of a HeaderView before it is
// handed to a Decompressor/Compressor, using a lazily built package-level
// validator.Validate.
func (hv *HeaderView) Validate() error {
	if hdrValidate == nil {
		hdrValidate = validator.New()
	}
	if err := hdrValidate.Struct(hv); err != nil {
		return fmt.Errorf("hatanaka: invalid header view: %w", err)
	}
	return nil
}

// K returns the number of observables declared for sv's constellation, i.e.
// K_sv in the sizing formulas.
func (hv *HeaderView) K(sv SV) int {
	return len(hv.Observables[obsListKey(hv, sv)])
}

// ObsCodes returns the ordered observable codes for sv's constellation.
func (hv *HeaderView) ObsCodes(sv SV) []string {
	return hv.Observables[obsListKey(hv, sv)]
}

// IsV3 reports whether the header selects the v3+ wire layout.
func (hv *HeaderView) IsV3() bool {
	return hv.Major >= 3
}
