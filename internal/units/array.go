package units

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"gonum.org/v1/gonum/mat"
)

// ErrCoercion is returned when an input cannot be read as a real scalar or a
// homogeneous numeric array.
var ErrCoercion = errors.New("input is not a real number or numeric array")

// ErrUnknownConversion is returned by ApplyNamed for unregistered names.
var ErrUnknownConversion = errors.New("unknown conversion")

var jsonNumberType = reflect.TypeOf(json.Number(""))

// Array is a dense row-major numeric array. A nil or empty Shape is a scalar
// holding exactly one value in Data.
type Array struct {
	Shape []int
	Data  []float64
}

// Scalar wraps a single value.
func Scalar(x float64) Array {
	return Array{Data: []float64{x}}
}

// IsScalar reports whether a has no dimensions.
func (a Array) IsScalar() bool { return len(a.Shape) == 0 }

// Len returns the number of elements.
func (a Array) Len() int { return len(a.Data) }

// Map applies c elementwise, returning a new array of the same shape.
func (a Array) Map(c Conversion) Array {
	shape := make([]int, len(a.Shape))
	copy(shape, a.Shape)
	if a.IsScalar() {
		shape = nil
	}
	return Array{Shape: shape, Data: c.Slice(a.Data)}
}

// Value unwraps a into its natural Go form: float64 for a scalar, []float64
// for one dimension, [][]float64 for two, and nested []any beyond that.
func (a Array) Value() any {
	switch len(a.Shape) {
	case 0:
		if len(a.Data) == 0 {
			return 0.
		}
		return a.Data[0]
	case 1:
		out := make([]float64, len(a.Data))
		copy(out, a.Data)
		return out
	case 2:
		rows, cols := a.Shape[0], a.Shape[1]
		out := make([][]float64, rows)
		for i := range out {
			out[i] = make([]float64, cols)
			copy(out[i], a.Data[i*cols:(i+1)*cols])
		}
		return out
	default:
		return nest(a.Shape, a.Data)
	}
}

func nest(shape []int, data []float64) any {
	if len(shape) == 1 {
		out := make([]float64, len(data))
		copy(out, data)
		return out
	}
	n := shape[0]
	out := make([]any, n)
	if n == 0 {
		return out
	}
	stride := len(data) / n
	for i := 0; i < n; i++ {
		out[i] = nest(shape[1:], data[i*stride:(i+1)*stride])
	}
	return out
}

// AsArray coerces input into an Array. Accepted inputs are Go numeric scalars
// (including named numeric types and json.Number), slices and arrays of them
// nested to any depth as long as every level is rectangular, gonum matrices
// and vectors, and Array itself. Anything else yields ErrCoercion.
func AsArray(input any) (Array, error) {
	switch v := input.(type) {
	case Array:
		return Array{Shape: append([]int(nil), v.Shape...), Data: append([]float64(nil), v.Data...)}, nil
	case *mat.VecDense:
		if v == nil {
			return Array{}, fmt.Errorf("%w: nil vector", ErrCoercion)
		}
		n := v.Len()
		data := make([]float64, n)
		for i := 0; i < n; i++ {
			data[i] = v.AtVec(i)
		}
		return Array{Shape: []int{n}, Data: data}, nil
	case mat.Matrix:
		if isNilPointer(v) {
			return Array{}, fmt.Errorf("%w: nil matrix", ErrCoercion)
		}
		r, c := v.Dims()
		data := make([]float64, 0, r*c)
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				data = append(data, v.At(i, j))
			}
		}
		return Array{Shape: []int{r, c}, Data: data}, nil
	}

	shape, data, err := flatten(reflect.ValueOf(input))
	if err != nil {
		return Array{}, err
	}
	return Array{Shape: shape, Data: data}, nil
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

func flatten(rv reflect.Value) ([]int, []float64, error) {
	for rv.IsValid() && rv.Kind() == reflect.Interface {
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil, nil, fmt.Errorf("%w: nil", ErrCoercion)
	}

	if rv.Type() == jsonNumberType {
		f, err := json.Number(rv.String()).Float64()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrCoercion, err)
		}
		return nil, []float64{f}, nil
	}

	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return nil, []float64{rv.Float()}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return nil, []float64{float64(rv.Int())}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return nil, []float64{float64(rv.Uint())}, nil
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return []int{0}, []float64{}, nil
		}
		n := rv.Len()
		if n == 0 {
			return []int{0}, []float64{}, nil
		}
		var inner []int
		var data []float64
		for i := 0; i < n; i++ {
			shape, d, err := flatten(rv.Index(i))
			if err != nil {
				return nil, nil, err
			}
			if i == 0 {
				inner = shape
				data = make([]float64, 0, n*len(d))
			} else if !sameShape(inner, shape) {
				return nil, nil, fmt.Errorf("%w: ragged array at index %d", ErrCoercion, i)
			}
			data = append(data, d...)
		}
		return append([]int{n}, inner...), data, nil
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrCoercion, rv.Type())
	}
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Apply evaluates c over input and returns a result of corresponding shape.
// float64, []float64 and Array inputs return the same types; *mat.Dense and
// *mat.VecDense inputs return new values of the same dimensions; any other
// accepted input is coerced with AsArray and returned through Array.Value.
func Apply(c Conversion, input any) (any, error) {
	switch v := input.(type) {
	case float64:
		return c(v), nil
	case []float64:
		if v == nil {
			return []float64{}, nil
		}
		return c.Slice(v), nil
	case Array:
		return v.Map(c), nil
	case *mat.Dense:
		if v == nil {
			return nil, fmt.Errorf("%w: nil matrix", ErrCoercion)
		}
		if v.IsEmpty() {
			return &mat.Dense{}, nil
		}
		var out mat.Dense
		out.Apply(func(_, _ int, x float64) float64 { return c(x) }, v)
		return &out, nil
	case *mat.VecDense:
		if v == nil {
			return nil, fmt.Errorf("%w: nil vector", ErrCoercion)
		}
		if v.IsEmpty() {
			return &mat.VecDense{}, nil
		}
		out := mat.NewVecDense(v.Len(), nil)
		for i := 0; i < v.Len(); i++ {
			out.SetVec(i, c(v.AtVec(i)))
		}
		return out, nil
	}

	a, err := AsArray(input)
	if err != nil {
		return nil, err
	}
	return a.Map(c).Value(), nil
}

// ApplyNamed looks up a registered conversion by name and applies it.
func ApplyNamed(name string, input any) (any, error) {
	c, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w %q: valid conversions are %s", ErrUnknownConversion, name, GetValidNamesString())
	}
	return Apply(c, input)
}
