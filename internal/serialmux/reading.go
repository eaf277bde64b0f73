package serialmux

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/banshee-data/eim/internal/units"
)

var (
	ErrMalformedReading  = errors.New("line is not an ADC reading")
	ErrReadingOutOfRange = errors.New("ADC reading out of range")
)

// ParseReading decodes one line of BioEmo output: a single integer ADC code
// in [0, 1023], optionally surrounded by whitespace.
func ParseReading(line string) (float64, error) {
	s := strings.TrimSpace(line)
	if s == "" {
		return 0, fmt.Errorf("%w: empty line", ErrMalformedReading)
	}
	code, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedReading, s)
	}
	if code < 0 || float64(code) > units.BioEmoADCMax {
		return 0, fmt.Errorf("%w: %d not in [0, %d]", ErrReadingOutOfRange, code, int(units.BioEmoADCMax))
	}
	return float64(code), nil
}
