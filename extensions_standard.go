package bsdf

import (
	"fmt"
	"reflect"
)

// complexExtension implements the standard "c" extension: a complex
// number's base representation is a 2-element list [real, imag].
func complexExtension() Extension {
	return Extension{
		Name:      "c",
		ExactType: reflect.TypeOf(complex128(0)),
		Matches: func(v Value) bool {
			switch v.(type) {
			case complex128, complex64:
				return true
			default:
				return false
			}
		},
		ToBase: func(v Value) (Value, error) {
			switch c := v.(type) {
			case complex128:
				return []Value{real(c), imag(c)}, nil
			case complex64:
				return []Value{float64(real(c)), float64(imag(c))}, nil
			default:
				return nil, fmt.Errorf("complex extension received non-complex value %T", v)
			}
		},
		FromBase: func(base Value) (Value, error) {
			list, ok := base.([]Value)
			if !ok || len(list) != 2 {
				return nil, fmt.Errorf("complex extension expects a 2-element list, got %T", base)
			}
			re, err := asFloat64(list[0])
			if err != nil {
				return nil, fmt.Errorf("complex real part: %w", err)
			}
			im, err := asFloat64(list[1])
			if err != nil {
				return nil, fmt.Errorf("complex imaginary part: %w", err)
			}
			return complex(re, im), nil
		},
	}
}

// ndarrayExtension implements the standard "ndarray" extension: an
// NDArray's base representation is a map {shape, dtype, data}.
func ndarrayExtension() Extension {
	return Extension{
		Name:      "ndarray",
		ExactType: reflect.TypeOf(NDArray{}),
		Matches: func(v Value) bool {
			_, ok := v.(NDArray)
			return ok
		},
		ToBase: func(v Value) (Value, error) {
			arr, ok := v.(NDArray)
			if !ok {
				return nil, fmt.Errorf("ndarray extension received non-NDArray value %T", v)
			}
			shape := make([]Value, len(arr.Shape))
			for i, dim := range arr.Shape {
				shape[i] = dim
			}
			m := NewMap()
			m.Set("shape", shape)
			m.Set("dtype", arr.Dtype)
			m.Set("data", NewBlob(arr.Data))
			return m, nil
		},
		FromBase: func(base Value) (Value, error) {
			m, ok := base.(Map)
			if !ok {
				return nil, fmt.Errorf("ndarray extension expects a map, got %T", base)
			}
			shapeVal, ok := m.Get("shape")
			if !ok {
				return nil, fmt.Errorf("ndarray map missing %q", "shape")
			}
			shapeList, ok := shapeVal.([]Value)
			if !ok {
				return nil, fmt.Errorf("ndarray %q field must be a list, got %T", "shape", shapeVal)
			}
			shape := make([]int64, len(shapeList))
			for i, v := range shapeList {
				n, err := asInt64(v)
				if err != nil {
					return nil, fmt.Errorf("ndarray shape element %d: %w", i, err)
				}
				shape[i] = n
			}

			dtypeVal, ok := m.Get("dtype")
			if !ok {
				return nil, fmt.Errorf("ndarray map missing %q", "dtype")
			}
			dtype, ok := dtypeVal.(string)
			if !ok {
				return nil, fmt.Errorf("ndarray %q field must be a string, got %T", "dtype", dtypeVal)
			}

			dataVal, ok := m.Get("data")
			if !ok {
				return nil, fmt.Errorf("ndarray map missing %q", "data")
			}
			data, err := asBytes(dataVal)
			if err != nil {
				return nil, fmt.Errorf("ndarray %q field: %w", "data", err)
			}

			return NDArray{Shape: shape, Dtype: dtype, Data: data}, nil
		},
	}
}

func asFloat64(v Value) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int16:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}

func asInt64(v Value) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int16:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("expected an integer, got %T", v)
	}
}

func asBytes(v Value) ([]byte, error) {
	switch b := v.(type) {
	case Blob:
		return b.Data, nil
	case *LazyBlob:
		return b.GetBytes()
	case []byte:
		return b, nil
	default:
		return nil, fmt.Errorf("expected a blob, got %T", v)
	}
}
