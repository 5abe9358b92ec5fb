// Package types defines the identifier value type, the parent/child entity
// model with its orphan-tracking collection, backend configuration, and the
// standard errors shared by the persistence layer and its callers.
package types
