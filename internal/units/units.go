// Package units converts raw sensor readings into physical units and rescales
// values between SI prefixes.
//
// Every conversion is a pure function of a single float64. Apply lifts any of
// them over scalars, slices, nested slices and gonum matrices while keeping the
// shape of the input.
package units

import (
	"sort"
	"strings"
)

// Conversion is a stateless scalar formula.
type Conversion func(float64) float64

// Slice applies c to every element of xs and returns a new slice of the same
// length. A nil input yields a nil output.
func (c Conversion) Slice(xs []float64) []float64 {
	if xs == nil {
		return nil
	}
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = c(x)
	}
	return out
}

// Then returns the composition "c, then next".
func (c Conversion) Then(next Conversion) Conversion {
	return func(x float64) float64 { return next(c(x)) }
}

// Conversion names
const (
	ReadingsToVolts   = "bioemo_readings_to_volts"
	VoltsToOhms       = "bioemo_volts_to_ohms"
	VoltsToSiemens    = "bioemo_volts_to_siemens"
	ReadingsToSiemens = "bioemo_readings_to_siemens"
	OhmsToSiemensName = "ohms_to_siemens"
	SiemensToOhmsName = "siemens_to_ohms"
	ToKilo            = "unit_to_kilounit"
	ToMega            = "unit_to_megaunit"
	ToGiga            = "unit_to_gigaunit"
	ToMilli           = "unit_to_milliunit"
	ToMicro           = "unit_to_microunit"
	ToNano            = "unit_to_nanounit"
)

var registry = map[string]Conversion{
	ReadingsToVolts:   BioEmoReadingsToVolts,
	VoltsToOhms:       BioEmoVoltsToOhms,
	VoltsToSiemens:    BioEmoVoltsToSiemens,
	ReadingsToSiemens: BioEmoReadingsToSiemens,
	OhmsToSiemensName: OhmsToSiemens,
	SiemensToOhmsName: SiemensToOhms,
	ToKilo:            UnitToKilounit,
	ToMega:            UnitToMegaunit,
	ToGiga:            UnitToGigaunit,
	ToMilli:           UnitToMilliunit,
	ToMicro:           UnitToMicrounit,
	ToNano:            UnitToNanounit,
}

// Lookup returns the conversion registered under name.
func Lookup(name string) (Conversion, bool) {
	c, ok := registry[name]
	return c, ok
}

// IsValid checks if the given name is a registered conversion
func IsValid(name string) bool {
	_, ok := registry[name]
	return ok
}

// Names returns the registered conversion names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetValidNamesString returns a comma-separated list of conversion names for error messages
func GetValidNamesString() string {
	return strings.Join(Names(), ", ")
}

// OhmsToSiemens converts resistance in ohms to conductance in siemens.
func OhmsToSiemens(ohms float64) float64 {
	return 1. / ohms
}

// SiemensToOhms converts conductance in siemens to resistance in ohms. The
// relation is its own inverse, so this is the same formula as OhmsToSiemens.
func SiemensToOhms(siemens float64) float64 {
	return OhmsToSiemens(siemens)
}
