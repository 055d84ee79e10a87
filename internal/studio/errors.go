package studio

import (
	"errors"
	"fmt"
)

var (
	ErrNothingToExport = errors.New("nothing to export")
	ErrNothingToSave   = errors.New("nothing to save")
	ErrUnknownElement  = errors.New("unknown element")
	ErrNoProduct       = errors.New("no product open")

	errEmptyImage = errors.New("image has no pixels")
)

// AssetError reports an image that could not be loaded or uploaded.
type AssetError struct {
	Src string
	Err error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("asset %s: %v", shortSrc(e.Src), e.Err)
}

func (e *AssetError) Unwrap() error { return e.Err }

// shortSrc keeps data URLs out of error messages.
func shortSrc(src string) string {
	if len(src) > 64 {
		return src[:61] + "..."
	}
	return src
}
