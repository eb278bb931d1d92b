package ldb

import (
	"bytes"

	"github.com/pkg/errors"
	"github.com/stakecore/stakecore/infrastructure/db/database"
	"github.com/syndtr/goleveldb/leveldb/iterator"
)

type cursor struct {
	ldbIterator iterator.Iterator
	bucket      *database.Bucket
	isClosed    bool
}

func newLevelDBCursor(ldbIterator iterator.Iterator, bucket *database.Bucket) *cursor {
	return &cursor{ldbIterator: ldbIterator, bucket: bucket}
}

// Next panics if the cursor is closed.
func (c *cursor) Next() bool {
	if c.isClosed {
		panic("cannot call next on a closed cursor")
	}
	return c.ldbIterator.Next()
}

// First panics if the cursor is closed.
func (c *cursor) First() bool {
	if c.isClosed {
		panic("cannot call first on a closed cursor")
	}
	return c.ldbIterator.First()
}

func (c *cursor) Seek(key *database.Key) error {
	if c.isClosed {
		return errors.New("cannot seek a closed cursor")
	}

	keyBytes := key.Bytes()
	found := c.ldbIterator.Seek(keyBytes)
	if !found || !bytes.Equal(c.ldbIterator.Key(), keyBytes) {
		return errors.Wrapf(database.ErrNotFound, "key %s not found", key)
	}
	return nil
}

func (c *cursor) Key() (*database.Key, error) {
	if c.isClosed {
		return nil, errors.New("cannot get the key of a closed cursor")
	}
	fullKey := c.ldbIterator.Key()
	if fullKey == nil {
		return nil, errors.Wrapf(database.ErrNotFound, "cannot get the "+
			"key of an exhausted cursor")
	}
	return c.bucket.KeyFromBytes(fullKey), nil
}

func (c *cursor) Value() ([]byte, error) {
	if c.isClosed {
		return nil, errors.New("cannot get the value of a closed cursor")
	}
	value := c.ldbIterator.Value()
	if value == nil {
		return nil, errors.Wrapf(database.ErrNotFound, "cannot get the "+
			"value of an exhausted cursor")
	}
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)
	return valueCopy, nil
}

func (c *cursor) Close() error {
	if c.isClosed {
		return errors.New("cannot close an already closed cursor")
	}
	c.isClosed = true
	c.ldbIterator.Release()
	return errors.WithStack(c.ldbIterator.Error())
}
