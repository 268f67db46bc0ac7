package bsdf

// Value is the dynamic type every encoded/decoded BSDF value takes in
// Go. Encode accepts nil, bool, string, any Go integer type (the
// integer tag, h or i, is chosen by magnitude, not by the input's Go
// type), float32/float64 (the tag chosen by the Options.float64
// setting, not the input's Go type), []Value (list), Map, Blob,
// []byte, *LazyBlob, *ListStream, or any type a registered extension
// recognizes. Decode always produces int64 for integers and float64
// for floats regardless of which wire tag was used, plus bool,
// string, []Value, Map, Blob (or *LazyBlob when WithLazyBlobs is set),
// *StreamReader (when WithStreaming is set on a trailing open/closed
// list), or whatever a matching extension's FromBase returns.
//
// There is no dedicated Value interface or tagged-union type: Go's
// any, together with a type switch in the encoder and concrete types
// on decode, plays that role, the same way encoding/json represents
// its value tree.
type Value = any

// MapEntry is one key/value pair of a Map, in the position it holds
// within that Map's production order.
type MapEntry struct {
	Key   string
	Value Value
}

// Map is an ordered string-keyed map: BSDF requires that a map's
// production order and its consumption order match, a guarantee a
// native Go map (unordered iteration) cannot give. A nil Map encodes
// as an empty map.
type Map []MapEntry

// NewMap returns an empty Map ready for Set calls.
func NewMap() Map {
	return nil
}

// Get returns the value associated with key and whether it was found.
func (m Map) Get(key string) (Value, bool) {
	for _, e := range m {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Set inserts key/value, or overwrites the value in place if key is
// already present, preserving key's original position.
func (m *Map) Set(key string, value Value) {
	for i := range *m {
		if (*m)[i].Key == key {
			(*m)[i].Value = value
			return
		}
	}
	*m = append(*m, MapEntry{Key: key, Value: value})
}

// Keys returns the map's keys in production order.
func (m Map) Keys() []string {
	keys := make([]string, len(m))
	for i, e := range m {
		keys[i] = e.Key
	}
	return keys
}

// Len returns the number of entries in m.
func (m Map) Len() int {
	return len(m)
}

// Blob is a raw byte payload to be encoded as a BSDF blob. ExtraSize
// reserves allocated-but-unused headroom beyond len(Data), letting a
// LazyBlob grow into the file in place later without reallocating it;
// it is zero for an ordinary blob with no planned in-place growth.
type Blob struct {
	Data      []byte
	ExtraSize uint64
}

// NewBlob wraps data as a Blob with no reserved extra headroom.
func NewBlob(data []byte) Blob {
	return Blob{Data: data}
}

// NDArray is the domain value the standard "ndarray" extension
// converts to and from its base map {shape, dtype, data}: a shape, a
// dtype label, and raw data bytes.
// This package does not interpret Dtype or reshape Data; it only
// carries them across the wire intact.
type NDArray struct {
	Shape []int64
	Dtype string
	Data  []byte
}
