package compiler

import "fmt"

// CompileErrorKind enumerates the taxonomy of §7's compile-time error
// classes this package actually raises.
type CompileErrorKind string

const (
	UnknownFunction        CompileErrorKind = "UnknownFunction"
	UndefinedBus           CompileErrorKind = "UndefinedBus"
	WrongArity             CompileErrorKind = "WrongArity"
	MissingEffectInput     CompileErrorKind = "MissingEffectInput"
	TransformOnAudioSignal CompileErrorKind = "TransformOnAudioSignal"
	AdsrRequiresPattern    CompileErrorKind = "AdsrRequiresPattern"
)

// CompileError is the error type for every failure this package raises
// itself, grounded on the teacher's Operation/Details/Err error-struct
// idiom. A malformed mini-notation string literal is reported by Compile
// as the mininotation package's own *ParseError instead.
type CompileError struct {
	Kind    CompileErrorKind
	Message string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compiler: %s: %s", e.Kind, e.Message)
}

func errf(kind CompileErrorKind, format string, args ...any) error {
	return &CompileError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
