package ldb

import "github.com/syndtr/goleveldb/leveldb/opt"

// Options returns the leveldb options for a database whose block cache is
// cacheSizeMiB large. Defined as a variable so tests can shrink it.
var Options = func(cacheSizeMiB int) *opt.Options {
	return &opt.Options{
		Compression:            opt.NoCompression,
		BlockCacheCapacity:     cacheSizeMiB * opt.MiB,
		WriteBuffer:            (cacheSizeMiB / 2) * opt.MiB,
		DisableSeeksCompaction: true,
	}
}
