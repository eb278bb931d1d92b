package ldb

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
	"testing"

	"github.com/stakecore/stakecore/infrastructure/db/database"
)

func validateCurrentCursorKeyAndValue(t *testing.T, testName string, cursor database.Cursor,
	expectedKey *database.Key, expectedValue []byte) {

	cursorKey, err := cursor.Key()
	if err != nil {
		t.Fatalf("%s: Key unexpectedly failed: %s", testName, err)
	}
	if !bytes.Equal(cursorKey.Bytes(), expectedKey.Bytes()) {
		t.Fatalf("%s: Key returned wrong key. Want: %s, got: %s",
			testName, expectedKey, cursorKey)
	}
	cursorValue, err := cursor.Value()
	if err != nil {
		t.Fatalf("%s: Value unexpectedly failed for key %s: %s",
			testName, cursorKey, err)
	}
	if !bytes.Equal(cursorValue, expectedValue) {
		t.Fatalf("%s: Value returned wrong value for key %s. Want: %s, got: %s",
			testName, cursorKey, string(expectedValue), string(cursorValue))
	}
}

func recoverFromClosedCursorPanic(t *testing.T, testName string) {
	panicErr := recover()
	if panicErr == nil {
		t.Fatalf("%s: cursor unexpectedly didn't panic after being closed", testName)
	}
	expectedPanicErr := "closed cursor"
	if !strings.Contains(fmt.Sprintf("%v", panicErr), expectedPanicErr) {
		t.Fatalf("%s: cursor panicked with wrong message. Want: %v, got: %s",
			testName, expectedPanicErr, panicErr)
	}
}

func heightKey(bucket *database.Bucket, height uint64) *database.Key {
	var heightBytes [8]byte
	binary.BigEndian.PutUint64(heightBytes[:], height)
	return bucket.Key(heightBytes[:])
}

// TestCursorIteratesHeightsInOrder writes height keys out of order and
// checks the cursor returns them sorted, stays inside its bucket and seeks to
// exact keys only.
func TestCursorIteratesHeightsInOrder(t *testing.T) {
	ldb, teardownFunc := prepareDatabaseForTest(t, "TestCursorIteratesHeightsInOrder")
	defer teardownFunc()

	rewindBucket := database.MakeBucket([]byte("rewind"))
	heights := []uint64{300, 2, 70000, 0, 255, 256}
	for _, height := range heights {
		err := ldb.Put(heightKey(rewindBucket, height), []byte(fmt.Sprintf("rewind data %d", height)))
		if err != nil {
			t.Fatalf("TestCursorIteratesHeightsInOrder: Put unexpectedly failed: %s", err)
		}
	}
	err := ldb.Put(database.MakeBucket([]byte("rewinds")).Key([]byte{0}), []byte("other"))
	if err != nil {
		t.Fatalf("TestCursorIteratesHeightsInOrder: Put unexpectedly failed: %s", err)
	}

	cursor, err := ldb.Cursor(rewindBucket)
	if err != nil {
		t.Fatalf("TestCursorIteratesHeightsInOrder: ldb.Cursor unexpectedly failed: %s", err)
	}
	defer func() {
		err := cursor.Close()
		if err != nil {
			t.Fatalf("TestCursorIteratesHeightsInOrder: Close unexpectedly failed: %s", err)
		}
	}()

	sorted := []uint64{0, 2, 255, 256, 300, 70000}
	var visited []uint64
	for ok := cursor.First(); ok; ok = cursor.Next() {
		key, err := cursor.Key()
		if err != nil {
			t.Fatalf("TestCursorIteratesHeightsInOrder: Key unexpectedly failed: %s", err)
		}
		visited = append(visited, binary.BigEndian.Uint64(key.Suffix()))
	}
	if fmt.Sprint(visited) != fmt.Sprint(sorted) {
		t.Fatalf("TestCursorIteratesHeightsInOrder: expected heights %v, got %v", sorted, visited)
	}

	err = cursor.Seek(heightKey(rewindBucket, 1))
	if !database.IsNotFoundError(err) {
		t.Fatalf("TestCursorIteratesHeightsInOrder: Seek returned wrong error: %v", err)
	}
	err = cursor.Seek(heightKey(rewindBucket, 300))
	if err != nil {
		t.Fatalf("TestCursorIteratesHeightsInOrder: Seek unexpectedly failed: %s", err)
	}
	validateCurrentCursorKeyAndValue(t, "TestCursorIteratesHeightsInOrder", cursor,
		heightKey(rewindBucket, 300), []byte("rewind data 300"))

	if !cursor.Next() {
		t.Fatalf("TestCursorIteratesHeightsInOrder: Next after Seek is unexpectedly done")
	}
	validateCurrentCursorKeyAndValue(t, "TestCursorIteratesHeightsInOrder", cursor,
		heightKey(rewindBucket, 70000), []byte("rewind data 70000"))
	if cursor.Next() {
		t.Fatalf("TestCursorIteratesHeightsInOrder: Next after the last height is unexpectedly not done")
	}
	_, err = cursor.Key()
	if !database.IsNotFoundError(err) {
		t.Fatalf("TestCursorIteratesHeightsInOrder: Key returned wrong error: %v", err)
	}
	_, err = cursor.Value()
	if !database.IsNotFoundError(err) {
		t.Fatalf("TestCursorIteratesHeightsInOrder: Value returned wrong error: %v", err)
	}
}

func TestCursorCloseErrors(t *testing.T) {
	tests := []struct {
		name     string
		function func(cursor database.Cursor) error
	}{
		{
			name: "Seek",
			function: func(cursor database.Cursor) error {
				return cursor.Seek(database.MakeBucket().Key([]byte{}))
			},
		},
		{
			name: "Key",
			function: func(cursor database.Cursor) error {
				_, err := cursor.Key()
				return err
			},
		},
		{
			name: "Value",
			function: func(cursor database.Cursor) error {
				_, err := cursor.Value()
				return err
			},
		},
		{
			name: "Close",
			function: func(cursor database.Cursor) error {
				return cursor.Close()
			},
		},
	}

	for _, test := range tests {
		func() {
			ldb, teardownFunc := prepareDatabaseForTest(t, "TestCursorCloseErrors")
			defer teardownFunc()

			cursor, err := ldb.Cursor(database.MakeBucket())
			if err != nil {
				t.Fatalf("TestCursorCloseErrors: ldb.Cursor unexpectedly failed: %s", err)
			}
			err = cursor.Close()
			if err != nil {
				t.Fatalf("TestCursorCloseErrors: Close unexpectedly failed: %s", err)
			}

			err = test.function(cursor)
			if err == nil {
				t.Fatalf("TestCursorCloseErrors: %s unexpectedly succeeded", test.name)
			}
			if !strings.Contains(err.Error(), "closed cursor") {
				t.Fatalf("TestCursorCloseErrors: %s returned wrong error: %s", test.name, err)
			}
		}()
	}
}

func TestCursorCloseFirstAndNext(t *testing.T) {
	ldb, teardownFunc := prepareDatabaseForTest(t, "TestCursorCloseFirstAndNext")
	defer teardownFunc()

	cursor, err := ldb.Cursor(database.MakeBucket([]byte("bucket")))
	if err != nil {
		t.Fatalf("TestCursorCloseFirstAndNext: ldb.Cursor unexpectedly failed: %s", err)
	}
	err = cursor.Close()
	if err != nil {
		t.Fatalf("TestCursorCloseFirstAndNext: Close unexpectedly failed: %s", err)
	}

	func() {
		defer recoverFromClosedCursorPanic(t, "TestCursorCloseFirstAndNext")
		cursor.First()
	}()
	func() {
		defer recoverFromClosedCursorPanic(t, "TestCursorCloseFirstAndNext")
		cursor.Next()
	}()
}
