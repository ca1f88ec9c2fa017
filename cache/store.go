// Copyright 2026 The Patchkernel Authors
// This file is part of patchkernel, licensed LGPLv3-or-later.

// Package cache implements the compile-result cache (spec §2, §4.9):
// programs are keyed by their Fingerprint, so an unchanged patch skips
// relowering entirely. This adds on-disk persistence across process
// restarts on top of the in-memory keying spec §4.9 describes
// (SPEC_FULL.md §12) — an unchanged patch on a second process launch
// still hits the cache.
package cache

import (
	"bytes"
	"database/sql"
	"encoding/gob"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	"github.com/patchkernel/engine/ir"
)

// Store persists CompiledProgram blobs keyed by Fingerprint, compressed
// with zstd, in a local sqlite database (SPEC_FULL.md §11: klauspost/compress,
// modernc.org/sqlite, gofrs/flock).
type Store struct {
	db      *sql.DB
	lock    *flock.Flock
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// Open opens (creating if needed) the on-disk cache rooted at dir. A file
// lock guards schema migration against concurrent writers from another
// process (spec SPEC_FULL.md §11 "guards concurrent writers to the
// on-disk cache directory").
func Open(dir string) (*Store, error) {
	lock := flock.New(filepath.Join(dir, ".cache.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("cache: acquiring lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("cache: directory %s is locked by another process", dir)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "compile_cache.db"))
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("cache: opening database: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS programs (
		fingerprint TEXT PRIMARY KEY,
		blob        BLOB NOT NULL,
		created_at  INTEGER NOT NULL
	)`); err != nil {
		db.Close()
		lock.Unlock()
		return nil, fmt.Errorf("cache: migrating schema: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		lock.Unlock()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		lock.Unlock()
		return nil, err
	}

	return &Store{db: db, lock: lock, encoder: enc, decoder: dec}, nil
}

func (s *Store) Close() error {
	s.encoder.Close()
	s.decoder.Close()
	err := s.db.Close()
	s.lock.Unlock()
	return err
}

// Get looks up a previously-compiled program by fingerprint. A miss
// (program nil, ok false, err nil) means the caller must lower the patch.
func (s *Store) Get(fp ir.Fingerprint) (*ir.CompiledProgram, bool, error) {
	var blob []byte
	err := s.db.QueryRow(`SELECT blob FROM programs WHERE fingerprint = ?`, fp.Hex()).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: query: %w", err)
	}

	raw, err := s.decoder.DecodeAll(blob, nil)
	if err != nil {
		return nil, false, fmt.Errorf("cache: decompressing: %w", err)
	}
	var prog ir.CompiledProgram
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&prog); err != nil {
		return nil, false, fmt.Errorf("cache: decoding: %w", err)
	}
	return &prog, true, nil
}

// Put stores prog under its own Fingerprint, overwriting any prior entry
// for the same key (equal fingerprints imply equal programs up to debug
// labels, spec §4.9, so overwriting is always safe).
func (s *Store) Put(prog *ir.CompiledProgram) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(prog); err != nil {
		return fmt.Errorf("cache: encoding: %w", err)
	}
	compressed := s.encoder.EncodeAll(buf.Bytes(), nil)

	_, err := s.db.Exec(`INSERT INTO programs (fingerprint, blob, created_at) VALUES (?, ?, strftime('%s','now'))
		ON CONFLICT(fingerprint) DO UPDATE SET blob=excluded.blob, created_at=excluded.created_at`,
		prog.Fingerprint.Hex(), compressed)
	if err != nil {
		return fmt.Errorf("cache: insert: %w", err)
	}
	return nil
}
