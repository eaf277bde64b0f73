package units

// Prefix is an SI prefix a measure can be rescaled to.
type Prefix string

const (
	Unit  Prefix = "unit"
	Kilo  Prefix = "kilo"
	Mega  Prefix = "mega"
	Giga  Prefix = "giga"
	Milli Prefix = "milli"
	Micro Prefix = "micro"
	Nano  Prefix = "nano"
)

// ValidPrefixes contains all valid prefix values
var ValidPrefixes = []Prefix{Unit, Kilo, Mega, Giga, Milli, Micro, Nano}

// IsValidPrefix checks if the given prefix is in the list of valid prefixes
func IsValidPrefix(p string) bool {
	for _, valid := range ValidPrefixes {
		if Prefix(p) == valid {
			return true
		}
	}
	return false
}

// GetValidPrefixesString returns a comma-separated string of valid prefixes for error messages
func GetValidPrefixesString() string {
	return "unit, kilo, mega, giga, milli, micro, nano"
}

// UnitToKilounit converts whole units to thousands of units.
func UnitToKilounit(measure float64) float64 { return measure / 1000. }

// UnitToMegaunit converts whole units to millions of units.
func UnitToMegaunit(measure float64) float64 { return measure / 1000000. }

// UnitToGigaunit converts whole units to billions of units.
func UnitToGigaunit(measure float64) float64 { return measure / 1000000000. }

// UnitToMilliunit converts whole units to thousandths of units.
func UnitToMilliunit(measure float64) float64 { return measure * 1000. }

// UnitToMicrounit converts whole units to millionths of units.
func UnitToMicrounit(measure float64) float64 { return measure * 1000000. }

// UnitToNanounit converts whole units to billionths of units.
func UnitToNanounit(measure float64) float64 { return measure * 1000000000. }

// Conversion returns the rescaling function for p. Unknown prefixes, and
// Unit itself, map to the identity.
func (p Prefix) Conversion() Conversion {
	switch p {
	case Kilo:
		return UnitToKilounit
	case Mega:
		return UnitToMegaunit
	case Giga:
		return UnitToGigaunit
	case Milli:
		return UnitToMilliunit
	case Micro:
		return UnitToMicrounit
	case Nano:
		return UnitToNanounit
	default:
		return func(x float64) float64 { return x }
	}
}

// Rescale converts a measure in whole units to the given prefix
func Rescale(measure float64, p Prefix) float64 {
	return p.Conversion()(measure)
}
