package bsdf

import (
	"fmt"
	"reflect"
)

// Extension is a named, bidirectional converter between a domain value
// and its base-type representation. Matches is consulted only when the
// value's exact runtime type isn't already registered for the fast
// path; at least one of an exact type registration or a Matches
// predicate should be able to claim any value the extension intends to
// handle.
type Extension struct {
	Name string

	// ExactType, if set, lets the registry recognize this extension's
	// values by runtime type identity without calling Matches — the
	// "fast class-based dispatch table" the spec calls for. Leave nil
	// for an extension whose claimed values don't share one concrete
	// Go type.
	ExactType reflect.Type

	// Matches reports whether v should be encoded through this
	// extension. Consulted in registration order after the exact-type
	// fast path misses.
	Matches func(v Value) bool

	// ToBase converts a domain value into its base-type representation
	// for encoding.
	ToBase func(v Value) (Value, error)

	// FromBase converts a decoded base-type representation back into
	// the domain value.
	FromBase func(base Value) (Value, error)
}

// ExtensionRegistry holds the set of extensions a Serializer consults
// while encoding non-base-type values and while decoding
// extension-wrapped values.
type ExtensionRegistry struct {
	byName map[string]Extension
	byType map[reflect.Type]string
	order  []string
}

// NewExtensionRegistry returns a registry preloaded with the format's
// two standard extensions, "c" (complex numbers) and "ndarray".
func NewExtensionRegistry() *ExtensionRegistry {
	r := &ExtensionRegistry{
		byName: make(map[string]Extension),
		byType: make(map[reflect.Type]string),
	}
	r.mustRegister(complexExtension())
	r.mustRegister(ndarrayExtension())
	return r
}

func (r *ExtensionRegistry) mustRegister(ext Extension) {
	if err := r.Register(ext); err != nil {
		panic(err)
	}
}

// Register adds or replaces an extension. Re-registering a name that
// already exists replaces it in place, preserving its original
// position in the insertion-order scan list.
func (r *ExtensionRegistry) Register(ext Extension) error {
	if ext.Name == "" {
		return fmt.Errorf("extension name must not be empty")
	}
	if ext.ToBase == nil || ext.FromBase == nil {
		return fmt.Errorf("extension %q must provide both ToBase and FromBase", ext.Name)
	}
	if _, exists := r.byName[ext.Name]; !exists {
		r.order = append(r.order, ext.Name)
	}
	r.byName[ext.Name] = ext
	if ext.ExactType != nil {
		r.byType[ext.ExactType] = ext.Name
	}
	return nil
}

// Unregister removes an extension by name. Decoding data that still
// references the name afterward falls back to the unknown-extension,
// forward-compatible path.
func (r *ExtensionRegistry) Unregister(name string) {
	delete(r.byName, name)
	for t, n := range r.byType {
		if n == name {
			delete(r.byType, t)
		}
	}
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Lookup returns the extension registered under name, if any.
func (r *ExtensionRegistry) Lookup(name string) (Extension, bool) {
	ext, ok := r.byName[name]
	return ext, ok
}

// FindForEncode resolves which extension, if any, should encode v:
// first the exact-type fast path, then an insertion-order scan of
// every registered Matches predicate.
func (r *ExtensionRegistry) FindForEncode(v Value) (Extension, bool) {
	if v != nil {
		if name, ok := r.byType[reflect.TypeOf(v)]; ok {
			return r.byName[name], true
		}
	}
	for _, name := range r.order {
		ext := r.byName[name]
		if ext.Matches != nil && ext.Matches(v) {
			return ext, true
		}
	}
	return Extension{}, false
}
