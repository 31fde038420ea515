package db

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrTxDone is returned for operations on a committed or rolled back transaction
	ErrTxDone = errors.New("transaction already finished")
	// ErrReadOnly is returned for write operations on a read-only transaction
	ErrReadOnly = errors.New("write on read-only transaction")
	// ErrClosed is returned when a transaction is started on a closed database
	ErrClosed = errors.New("database closed")
	// ErrValueTooLarge is returned by engines that can not store a value of this size
	ErrValueTooLarge = errors.New("value too large for this engine")
)

// --------------------------------------------------------------------------
// Portable dump format
// --------------------------------------------------------------------------

// dumpMagic starts every dump, followed by the format version
var dumpMagic = [4]byte{'C', 'R', 'K', 'V'}

const (
	dumpVersion  byte = 1
	entryMarker  byte = 1
	endMarker    byte = 0
	restoreBatch      = 1000

	// MaxDumpFieldSize bounds a single key or value of a dump
	MaxDumpFieldSize = 256 << 20
)

// Dump writes all entries of the database to w in key order.
// The format is independent of the engine, a dump of one engine can be restored into any other.
func Dump(d KVDB, w io.Writer) error {
	tx, err := d.Begin(false)
	if err != nil {
		return fmt.Errorf("dump: begin: %w", err)
	}
	defer tx.Rollback()
	return DumpTx(tx, w)
}

// DumpTx writes all entries visible to tx to w, the transaction stays open.
func DumpTx(tx Txn, w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.Write(dumpMagic[:]); err != nil {
		return err
	}
	if err := bw.WriteByte(dumpVersion); err != nil {
		return err
	}

	var lenBuf [binary.MaxVarintLen64]byte
	var writeErr error
	writeBytes := func(b []byte) {
		if writeErr != nil {
			return
		}
		n := binary.PutUvarint(lenBuf[:], uint64(len(b)))
		if _, writeErr = bw.Write(lenBuf[:n]); writeErr != nil {
			return
		}
		_, writeErr = bw.Write(b)
	}

	err := tx.Scan("", func(key string, value []byte) bool {
		if writeErr = bw.WriteByte(entryMarker); writeErr != nil {
			return false
		}
		writeBytes([]byte(key))
		writeBytes(value)
		return writeErr == nil
	})
	if err != nil {
		return fmt.Errorf("dump: scan: %w", err)
	}
	if writeErr != nil {
		return writeErr
	}
	if err := bw.WriteByte(endMarker); err != nil {
		return err
	}
	return bw.Flush()
}

// Restore replaces the content of the database with the entries read from r.
// Entries are written in batches, so the database is only consistent once Restore returns without an error.
func Restore(d KVDB, r io.Reader) error {
	br := bufio.NewReader(r)

	var header [5]byte
	if _, err := io.ReadFull(br, header[:]); err != nil {
		return fmt.Errorf("restore: read header: %w", err)
	}
	if [4]byte(header[:4]) != dumpMagic {
		return errors.New("restore: invalid dump header")
	}
	if header[4] != dumpVersion {
		return fmt.Errorf("restore: unsupported dump version %d", header[4])
	}

	if err := Truncate(d); err != nil {
		return fmt.Errorf("restore: %w", err)
	}

	readBytes := func() ([]byte, error) {
		n, err := binary.ReadUvarint(br)
		if err != nil {
			return nil, err
		}
		if n > MaxDumpFieldSize {
			return nil, fmt.Errorf("field of %d bytes exceeds the limit of %d bytes", n, MaxDumpFieldSize)
		}
		b := make([]byte, n)
		_, err = io.ReadFull(br, b)
		return b, err
	}

	tx, err := d.Begin(true)
	if err != nil {
		return fmt.Errorf("restore: begin: %w", err)
	}
	inBatch := 0
	for {
		marker, err := br.ReadByte()
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("restore: read entry: %w", err)
		}
		if marker == endMarker {
			break
		}
		if marker != entryMarker {
			tx.Rollback()
			return fmt.Errorf("restore: invalid entry marker %d", marker)
		}
		key, err := readBytes()
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("restore: read key: %w", err)
		}
		value, err := readBytes()
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("restore: read value: %w", err)
		}
		if err := tx.Set(string(key), value); err != nil {
			tx.Rollback()
			return fmt.Errorf("restore: set: %w", err)
		}

		if inBatch++; inBatch == restoreBatch {
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("restore: commit: %w", err)
			}
			if tx, err = d.Begin(true); err != nil {
				return fmt.Errorf("restore: begin: %w", err)
			}
			inBatch = 0
		}
	}
	return tx.Commit()
}

// Truncate deletes every key of the database
func Truncate(d KVDB) error {
	return DeletePrefix(d, "")
}

// DeletePrefix deletes every key starting with prefix, in batches.
func DeletePrefix(d KVDB, prefix string) error {
	for {
		keys, err := collectKeys(d, prefix, restoreBatch)
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			return nil
		}
		tx, err := d.Begin(true)
		if err != nil {
			return err
		}
		for _, k := range keys {
			if err := tx.Delete(k); err != nil {
				tx.Rollback()
				return err
			}
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		if len(keys) < restoreBatch {
			return nil
		}
	}
}

func collectKeys(d KVDB, prefix string, limit int) ([]string, error) {
	tx, err := d.Begin(false)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	var keys []string
	err = tx.Scan(prefix, func(key string, _ []byte) bool {
		keys = append(keys, key)
		return len(keys) < limit
	})
	return keys, err
}
