package core

import "time"

// Failure is the single typed-error shape every validator and handler
// failure carries: a fixed HTTP status, a fixed response body, and an
// optional header set. It traverses the validator chain by short
// circuit (see the validate package) and is rendered to the wire
// verbatim by the HTTP adapter that catches it.
type Failure struct {
	Status  int
	Body    []byte
	Headers map[string]string
}

func (f *Failure) Error() string {
	return string(f.Body)
}

// StoreReader is the read-only surface of the store: each call returns a
// snapshot, copied under the owning database's lock, that a request
// borrows for its duration.
type StoreReader interface {
	// Databases returns a snapshot of every database currently known to
	// the store. Mutating the returned slice or the Target values it
	// points to does not affect the store.
	Databases(now time.Time) []*Database

	// DatabaseByName returns the database with the given name, or nil.
	DatabaseByName(name string) *Database
}

// StoreWriter is the store's mutating surface. Reset and CreateDatabase
// hold the store-wide lock; the target methods hold the owning
// database's lock for the duration of the call.
type StoreWriter interface {
	Reset()
	CreateDatabase(db *Database) error
	CreateTarget(databaseName string, t *Target) error
	DeleteTarget(databaseName, targetID string, now time.Time) (*Target, error)
	UpdateTarget(databaseName, targetID string, now time.Time, mutate func(*Target) error) (*Target, error)
}

// Store is the narrow interface validators and handlers borrow from.
type Store interface {
	StoreReader
	StoreWriter
}

// Matcher decides whether a query image matches a stored target image.
type Matcher interface {
	Matches(storedImage, queryImage []byte) bool
}

// Rater assigns a tracking-rating integer in [0, 5] to a stored image;
// -1 is reserved by the caller for targets that failed to decode.
type Rater interface {
	Rate(image []byte) int
}
