package units

import "math"

// BioEmo calibration. The sensor's output voltage follows the empirically
// fitted curve ln(V) = -1.17e-3*R + 0.861 with R in kilo-ohms.
const (
	// BioEmoADCMax is the largest code produced by the board's 10-bit ADC.
	BioEmoADCMax = 1023.
	// BioEmoReferenceVolts is the ADC reference voltage.
	BioEmoReferenceVolts = 5.

	bioEmoIntercept = 0.861
	bioEmoSlope     = 0.00117
)

// BioEmoReadingsToVolts maps a raw ADC code in [0, 1023] onto the 0-5 V range.
func BioEmoReadingsToVolts(reading float64) float64 {
	return (reading / BioEmoADCMax) * BioEmoReferenceVolts
}

// BioEmoVoltsToOhms inverts the calibration curve:
//
//	R = (0.861 - ln V) / 0.00117   [kΩ]
//
// and scales the result to ohms. Non-positive voltages produce NaN or +Inf.
func BioEmoVoltsToOhms(volts float64) float64 {
	left := bioEmoIntercept / bioEmoSlope
	right := 1. / bioEmoSlope
	right = right * math.Log(volts)
	return (left - right) * 1000
}

// BioEmoVoltsToSiemens converts a sensor voltage to skin conductance.
func BioEmoVoltsToSiemens(volts float64) float64 {
	ohms := BioEmoVoltsToOhms(volts)
	return OhmsToSiemens(ohms)
}

// BioEmoReadingsToSiemens converts a raw ADC code to skin conductance by way
// of volts and ohms.
func BioEmoReadingsToSiemens(reading float64) float64 {
	volts := BioEmoReadingsToVolts(reading)
	return BioEmoVoltsToSiemens(volts)
}
