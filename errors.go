package bsdf

import (
	"errors"
	"fmt"
)

// ErrorKind distinguishes the fatal-error categories the format
// defines. Every error this package returns from encode/decode/save/
// load carries one of these, so a caller can branch on failure class
// without string-matching a message.
type ErrorKind int

const (
	// KindFormat covers a wrong magic, an unknown type tag, an unknown
	// length marker, or an unknown compression identifier.
	KindFormat ErrorKind = iota
	// KindVersion covers a major-version mismatch between writer and
	// reader.
	KindVersion
	// KindEncoding covers invalid UTF-8 or an integer outside the
	// signed 64-bit range.
	KindEncoding
	// KindNotEncodable covers a value with no matching base type and
	// no extension willing to convert it.
	KindNotEncodable
	// KindStructural covers stream-placement violations: more than one
	// stream per file, a stream that isn't the final value, or a
	// stream instance reused across encodes.
	KindStructural
	// KindExtensionRecursion covers an extension's to_base returning a
	// value that would again select the same extension name.
	KindExtensionRecursion
	// KindBounds covers a LazyBlob seek/read/write outside its
	// allocated region.
	KindBounds
	// KindUnsupported covers random access attempted on a compressed
	// blob.
	KindUnsupported
	// KindIntegrity covers a checksum mismatch during validation.
	KindIntegrity
	// KindIO covers failures surfaced by the underlying sink/source.
	KindIO
)

func (k ErrorKind) String() string {
	switch k {
	case KindFormat:
		return "FormatError"
	case KindVersion:
		return "VersionError"
	case KindEncoding:
		return "EncodingError"
	case KindNotEncodable:
		return "NotEncodable"
	case KindStructural:
		return "StructuralError"
	case KindExtensionRecursion:
		return "ExtensionRecursion"
	case KindBounds:
		return "BoundsError"
	case KindUnsupported:
		return "UnsupportedError"
	case KindIntegrity:
		return "IntegrityError"
	case KindIO:
		return "IoError"
	default:
		return "UnknownError"
	}
}

// Error is the concrete error type returned by this package. It
// carries a Kind so callers can distinguish, say, a version mismatch
// from a bounds violation without parsing the message.
type Error struct {
	Kind  ErrorKind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

func formatError(msg string, cause error) error {
	return newError(KindFormat, msg, cause)
}

func versionError(msg string, cause error) error {
	return newError(KindVersion, msg, cause)
}

func encodingError(msg string, cause error) error {
	return newError(KindEncoding, msg, cause)
}

func notEncodableError(typeName string) error {
	return newError(KindNotEncodable, fmt.Sprintf("no base type or extension matches %s", typeName), nil)
}

func structuralError(msg string) error {
	return newError(KindStructural, msg, nil)
}

func extensionRecursionError(name string) error {
	return newError(KindExtensionRecursion, fmt.Sprintf("extension %q re-selected itself via to_base", name), nil)
}

func boundsError(msg string) error {
	return newError(KindBounds, msg, nil)
}

func unsupportedError(msg string) error {
	return newError(KindUnsupported, msg, nil)
}

func integrityError(msg string) error {
	return newError(KindIntegrity, msg, nil)
}

func ioError(msg string, cause error) error {
	return newError(KindIO, msg, cause)
}

// Is reports whether err is a *Error of the given kind. It unwraps
// through any wrapping chain, so callers can test
// bsdf.Is(err, bsdf.KindBounds) regardless of how deeply the error was
// wrapped on its way up.
func Is(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
