// Package linkerr defines the fatal error taxonomy used throughout tinyld.
//
// Every stage of the pipeline returns one of these types (InputFormatError
// and IOError carry a lower-level cause in Err, exposed via Unwrap) so that
// cmd/tinyld can pick a process exit code and prefix diagnostics with the
// offending symbol, section, or input without re-parsing the error text.
package linkerr

import "fmt"

// UsageError reports a problem with command-line arguments: a missing or
// unsupported option, a missing required value, or an input path that
// doesn't exist or has an unsupported extension.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string { return e.Msg }

// NewUsage returns a *UsageError with a formatted message.
func NewUsage(format string, args ...any) error {
	return &UsageError{fmt.Sprintf(format, args...)}
}

// InputFormatError reports that an input file could not be parsed as an
// ELF64 little-endian relocatable object, or that an archive member could
// not be extracted.
type InputFormatError struct {
	Input string
	Msg   string
	Err   error
}

func (e *InputFormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Input, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Input, e.Msg)
}

func (e *InputFormatError) Unwrap() error { return e.Err }

// UnsupportedFeatureError reports a construct this linker deliberately
// doesn't implement: a fixed-address input section, a relocation kind
// other than R_X86_64_PC32/R_X86_64_64, or a section whose permissions
// match no segment class. NOBITS/BSS sections are skipped during assembly
// and do not raise this error.
type UnsupportedFeatureError struct {
	Input   string
	Feature string
}

func (e *UnsupportedFeatureError) Error() string {
	return fmt.Sprintf("%s: unsupported: %s", e.Input, e.Feature)
}

// SymbolError reports a problem resolving a global symbol: a duplicate
// definition, an unresolved import, or a definition whose section was
// never included in any output segment.
type SymbolError struct {
	Symbol string
	Msg    string
}

func (e *SymbolError) Error() string {
	return fmt.Sprintf("symbol %q: %s", e.Symbol, e.Msg)
}

// NewSymbol returns a *SymbolError with a formatted message.
func NewSymbol(symbol, format string, args ...any) error {
	return &SymbolError{symbol, fmt.Sprintf(format, args...)}
}

// RelocationError reports a problem applying a relocation: a PC-relative
// value outside signed-32-bit range, a patch over non-zero bytes, or an
// overlapping/out-of-range patch.
type RelocationError struct {
	Input string
	Msg   string
}

func (e *RelocationError) Error() string {
	return fmt.Sprintf("%s: relocation error: %s", e.Input, e.Msg)
}

// NewRelocation returns a *RelocationError with a formatted message.
func NewRelocation(input, format string, args ...any) error {
	return &RelocationError{input, fmt.Sprintf(format, args...)}
}

// IOError wraps a failure reading an input or writing the output.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string  { return fmt.Sprintf("%s: %v", e.Path, e.Err) }
func (e *IOError) Unwrap() error  { return e.Err }
func NewIO(path string, err error) error { return &IOError{path, err} }
