package ecml

import "fmt"

// DecodeError reports a structured-text sub-field that could not be decoded.
// The field is skipped and the rest of the fragment is still loaded.
type DecodeError struct {
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s: %v", e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// UnresolvedAssetError reports an asset reference with no media descriptor.
// Media stays unset; it is not fatal.
type UnresolvedAssetError struct {
	AssetID string
}

func (e *UnresolvedAssetError) Error() string {
	return fmt.Sprintf("asset %q not found in media registry", e.AssetID)
}
