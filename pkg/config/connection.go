package config

import "strings"

// ConnectionType selects the backend behind a configured concern. It is a
// closed set: values are checked when the resolver runs, so an unknown type
// never reaches provider construction.
type ConnectionType string

const (
	// ConnectionInternal selects in-process backends (loopback membership,
	// in-memory storage). The connection string must be an ip:port endpoint.
	ConnectionInternal ConnectionType = "Internal"

	// ConnectionAzureTables selects Azure Table Storage.
	ConnectionAzureTables ConnectionType = "AzureTables"

	// ConnectionAzureBlobs selects Azure Blob Storage (grain storage only).
	ConnectionAzureBlobs ConnectionType = "AzureBlobs"

	// ConnectionBadger selects a local persistent BadgerDB database (grain
	// storage only). The connection string is the database directory.
	ConnectionBadger ConnectionType = "Badger"

	// ConnectionS3 selects Amazon S3 or a compatible object store (grain
	// storage only). The connection string is a semicolon key=value list.
	ConnectionS3 ConnectionType = "S3"
)

// parseConnectionType matches raw against the allowed set for a section,
// case-insensitively. Anything else is an UnsupportedBackendError carrying
// the offending value.
func parseConnectionType(section, raw string, allowed ...ConnectionType) (ConnectionType, error) {
	for _, ct := range allowed {
		if strings.EqualFold(raw, string(ct)) {
			return ct, nil
		}
	}
	return "", &UnsupportedBackendError{Section: section, ConnectionType: raw}
}
