package database

// DataAccessor is the common interface of a database and its transactions.
type DataAccessor interface {
	// Put sets the value for the given key, overwriting any previous value.
	Put(key *Key, value []byte) error

	// Get returns the value for the given key, or ErrNotFound.
	Get(key *Key) ([]byte, error)

	// Has returns true if the database contains the given key.
	Has(key *Key) (bool, error)

	// Delete deletes the value for the given key. Deleting a missing key is
	// not an error.
	Delete(key *Key) error

	// Cursor begins a new cursor over the given bucket.
	Cursor(bucket *Bucket) (Cursor, error)
}

// Database is a key/value store that supports atomic transactions.
type Database interface {
	DataAccessor

	// Begin begins a new transaction.
	Begin() (Transaction, error)

	// Compact compacts the whole key range.
	Compact() error

	// Close closes the database.
	Close() error
}

// Transaction reads from a snapshot taken at Begin and buffers writes until
// Commit, which applies them atomically. Reads do not observe the
// transaction's own buffered writes.
type Transaction interface {
	DataAccessor

	// Rollback discards the buffered writes.
	Rollback() error

	// Commit atomically applies the buffered writes.
	Commit() error

	// RollbackUnlessClosed rolls back the transaction unless it was already
	// committed or rolled back. Meant to be deferred right after Begin.
	RollbackUnlessClosed() error
}

// Cursor iterates over the keys of one bucket in ascending order.
type Cursor interface {
	// Next moves the cursor to the next key/value pair. It returns false
	// once the cursor is exhausted.
	Next() bool

	// First moves the cursor to the first key/value pair. It returns false
	// if the bucket is empty.
	First() bool

	// Seek moves the cursor to the given key. It returns ErrNotFound if the
	// key does not exist.
	Seek(key *Key) error

	// Key returns the key of the current pair, or ErrNotFound.
	Key() (*Key, error)

	// Value returns the value of the current pair, or ErrNotFound.
	Value() ([]byte, error)

	// Close releases the cursor.
	Close() error
}
