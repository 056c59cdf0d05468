// Package types defines the catalog entity types, their form drafts, the
// client configuration, and the standard errors shared by the transport,
// services, and stores.
//
// Nothing in this package performs I/O.
package types
