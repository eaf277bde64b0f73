package units

import (
	"math"
	"testing"
)

func TestBioEmoConversions(t *testing.T) {
	tests := []struct {
		name     string
		fn       Conversion
		input    float64
		expected float64
	}{
		{"midrange reading to volts", BioEmoReadingsToVolts, 512, 2.5024437927663734},
		{"two volts to ohms", BioEmoVoltsToOhms, 2, 143463.94823936306},
		{"two volts to siemens", BioEmoVoltsToSiemens, 2, 6.9703922990572208e-06},
		{"midrange reading to siemens", BioEmoReadingsToSiemens, 512, -2.0793430561630236e-05},
		{"zero reading to volts", BioEmoReadingsToVolts, 0, 0},
		{"full scale reading to volts", BioEmoReadingsToVolts, 1023, 5},
		{"intercept voltage to ohms", BioEmoVoltsToOhms, math.Exp(0.861), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.fn(tt.input)
			if math.Abs(result-tt.expected) > 0.001 {
				t.Errorf("got %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestReadingsToVoltsFormula(t *testing.T) {
	for _, x := range []float64{0, 1, 17, 255, 511.5, 512, 1000, 1023, -4, 2048} {
		if got, want := BioEmoReadingsToVolts(x), (x/1023)*5; got != want {
			t.Errorf("BioEmoReadingsToVolts(%v) = %v, want %v", x, got, want)
		}
	}
}

func TestSiemensChainIsComposition(t *testing.T) {
	for _, r := range []float64{1, 100, 300, 512, 800, 1023} {
		chained := OhmsToSiemens(BioEmoVoltsToOhms(BioEmoReadingsToVolts(r)))
		if got := BioEmoReadingsToSiemens(r); got != chained {
			t.Errorf("BioEmoReadingsToSiemens(%v) = %v, want %v", r, got, chained)
		}
	}
}

func TestOhmsToSiemensExact(t *testing.T) {
	if got := OhmsToSiemens(512); got != 1./512 {
		t.Errorf("OhmsToSiemens(512) = %v, want %v", got, 1./512)
	}
}

func TestReciprocalSymmetry(t *testing.T) {
	for _, s := range []float64{2, 0.5, 512, 1e-6, 6.97e-6, -3.25, 143463.9} {
		if OhmsToSiemens(s) != SiemensToOhms(s) {
			t.Errorf("OhmsToSiemens(%v) != SiemensToOhms(%v)", s, s)
		}
		roundTrip := OhmsToSiemens(SiemensToOhms(s))
		if math.Abs(roundTrip-s) > math.Abs(s)*1e-15 {
			t.Errorf("round trip of %v gave %v", s, roundTrip)
		}
	}
}

func TestFloatingPointEdgeCases(t *testing.T) {
	if got := OhmsToSiemens(0); !math.IsInf(got, 1) {
		t.Errorf("OhmsToSiemens(0) = %v, want +Inf", got)
	}
	if got := BioEmoVoltsToOhms(0); !math.IsInf(got, 1) {
		t.Errorf("BioEmoVoltsToOhms(0) = %v, want +Inf", got)
	}
	if got := BioEmoVoltsToOhms(-1); !math.IsNaN(got) {
		t.Errorf("BioEmoVoltsToOhms(-1) = %v, want NaN", got)
	}
	if got := BioEmoReadingsToSiemens(0); got != 0 {
		t.Errorf("BioEmoReadingsToSiemens(0) = %v, want 0", got)
	}
}

func TestPrefixConversions(t *testing.T) {
	tests := []struct {
		name     string
		fn       Conversion
		expected float64
	}{
		{"kilo", UnitToKilounit, 0.001},
		{"mega", UnitToMegaunit, 1. / 1000000},
		{"giga", UnitToGigaunit, 1. / 1000000000},
		{"milli", UnitToMilliunit, 1000},
		{"micro", UnitToMicrounit, 1000000},
		{"nano", UnitToNanounit, 1000000000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(1); got != tt.expected {
				t.Errorf("got %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCrossScaleComposition(t *testing.T) {
	for _, x := range []float64{1, -2.5, 3e-7, 42, 1e9} {
		if got := UnitToKilounit(UnitToMilliunit(x)); math.Abs(got-x) > math.Abs(x)*1e-15 {
			t.Errorf("kilo(milli(%v)) = %v", x, got)
		}
		if got := UnitToMegaunit(UnitToMicrounit(x)); math.Abs(got-x) > math.Abs(x)*1e-15 {
			t.Errorf("mega(micro(%v)) = %v", x, got)
		}
		got, want := UnitToNanounit(x)/1e6, UnitToMilliunit(x)
		if math.Abs(got-want) > math.Abs(want)*1e-15 {
			t.Errorf("nano(%v)/1e6 = %v, want %v", x, got, want)
		}
	}
}

func TestRescale(t *testing.T) {
	tests := []struct {
		prefix   Prefix
		expected float64
	}{
		{Unit, 2},
		{Kilo, 0.002},
		{Mega, 2e-6},
		{Giga, 2e-9},
		{Milli, 2000},
		{Micro, 2e6},
		{Nano, 2e9},
		{"unknown", 2},
	}

	for _, tt := range tests {
		t.Run(string(tt.prefix), func(t *testing.T) {
			if got := Rescale(2, tt.prefix); math.Abs(got-tt.expected) > math.Abs(tt.expected)*1e-12 {
				t.Errorf("Rescale(2, %s) = %v, want %v", tt.prefix, got, tt.expected)
			}
		})
	}
}

func TestIsValidPrefix(t *testing.T) {
	tests := []struct {
		name     string
		prefix   string
		expected bool
	}{
		{"valid kilo", "kilo", true},
		{"valid micro", "micro", true},
		{"valid unit", "unit", true},
		{"invalid", "centi", false},
		{"empty string", "", false},
		{"case sensitive", "Micro", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidPrefix(tt.prefix); got != tt.expected {
				t.Errorf("IsValidPrefix(%s) = %v, want %v", tt.prefix, got, tt.expected)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	names := Names()
	if len(names) != 12 {
		t.Fatalf("Names() returned %d entries, want 12", len(names))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("Names() not sorted: %v", names)
		}
	}
	for _, name := range names {
		if !IsValid(name) {
			t.Errorf("IsValid(%q) = false", name)
		}
	}
	if IsValid("readings_to_volts") {
		t.Error("IsValid accepted an unregistered name")
	}

	c, ok := Lookup(ReadingsToSiemens)
	if !ok {
		t.Fatalf("Lookup(%q) failed", ReadingsToSiemens)
	}
	if got, want := c(512), BioEmoReadingsToSiemens(512); got != want {
		t.Errorf("looked up conversion = %v, want %v", got, want)
	}
}

func TestConversionThen(t *testing.T) {
	toMicroSiemens := Conversion(BioEmoReadingsToSiemens).Then(UnitToMicrounit)
	if got, want := toMicroSiemens(512), BioEmoReadingsToSiemens(512)*1000000.; got != want {
		t.Errorf("Then() = %v, want %v", got, want)
	}
}
