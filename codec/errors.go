package codec

import "fmt"

// DecodeErrorKind enumerates the ways a byte stream can fail to parse
// as a canonical object encoding (spec.md §4.2).
type DecodeErrorKind int

const (
	// ParseError is a generic grammar violation: bad length prefix,
	// invalid type byte, non-canonical integer, and the like.
	ParseError DecodeErrorKind = iota
	// DuplicatedKey means a dict encoded the same key twice.
	DuplicatedKey
	// OutOfOrderKey means a dict's keys were not in strictly
	// ascending byte order; only rejected in strict mode.
	OutOfOrderKey
	// NonBytesKey means a dict key token was not a string.
	NonBytesKey
	// TrailingTokens means bytes remained after the top-level value
	// was fully parsed.
	TrailingTokens
	// UnexpectedEOF means a token was truncated.
	UnexpectedEOF
	// DepthExceeded means nesting exceeded MaxDepth.
	DepthExceeded
)

func (k DecodeErrorKind) String() string {
	switch k {
	case ParseError:
		return "ParseError"
	case DuplicatedKey:
		return "DuplicatedKey"
	case OutOfOrderKey:
		return "OutOfOrderKey"
	case NonBytesKey:
		return "NonBytesKey"
	case TrailingTokens:
		return "TrailingTokens"
	case UnexpectedEOF:
		return "UnexpectedEOF"
	case DepthExceeded:
		return "DepthExceeded"
	default:
		return "UnknownDecodeError"
	}
}

// DecodeError reports why a byte stream failed to decode.
type DecodeError struct {
	Kind    DecodeErrorKind
	Context string
}

func (e *DecodeError) Error() string {
	if e.Context == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Context)
}

func decodeErr(kind DecodeErrorKind, context string) error {
	return &DecodeError{Kind: kind, Context: context}
}

// IsDecodeErrorKind reports whether err is a *DecodeError of kind k.
func IsDecodeErrorKind(err error, k DecodeErrorKind) bool {
	de, ok := err.(*DecodeError)
	return ok && de.Kind == k
}
