package errors

import stderr "errors"

// New returns an error that formats as the given text.
// Each call to New returns a distinct error value even if the text is identical.
func New(msg string) error {
	return stderr.New(msg)
}

var (
	// EmptyStorageKeyError reports that a storage operation was attempted without a key.
	EmptyStorageKeyError = New("storage key is required")
	// StoreNotLiveError reports that the settings store has not finished hydrating.
	StoreNotLiveError = New("settings store is not live")
)

// IsMisuse reports whether the error was caused by the caller rather than by I/O.
func IsMisuse(e error) bool {
	var invalid *InvalidChangeError
	var nilDoc *NilDocumentError
	return stderr.Is(e, EmptyStorageKeyError) ||
		stderr.Is(e, StoreNotLiveError) ||
		stderr.As(e, &invalid) ||
		stderr.As(e, &nilDoc)
}
