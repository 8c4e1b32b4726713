package sync

import (
	"errors"
	"net"
	"net/url"

	"github.com/unfoldingword/door43-client/internal/index/fetch"
	"github.com/unfoldingword/door43-client/internal/index/legacy"
)

// Errors returned by the sync client.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, sync.ErrUnknownCatalog) {
//	    // register the catalog with UpdatePrimaryIndex first
//	}
var (
	// ErrUnknownCatalog is returned when no catalog is registered under
	// the requested slug.
	ErrUnknownCatalog = errors.New("unknown catalog")

	// ErrUnsupportedCatalog is returned when a catalog is registered but
	// no parser exists for it.
	ErrUnsupportedCatalog = errors.New("parsing this catalog has not been implemented")

	// ErrNotImplemented is returned by container and update operations when
	// no backing store is configured.
	ErrNotImplemented = errors.New("not implemented")
)

// IsTransport reports whether err came from fetching a catalog: a non-200
// status or a failed connection.
func IsTransport(err error) bool {
	if err == nil {
		return false
	}
	if fetch.IsStatus(err) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsParse reports whether err came from a malformed catalog payload.
func IsParse(err error) bool {
	return legacy.IsParseError(err)
}
