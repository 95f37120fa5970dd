// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package kvstore

import (
	"context"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

// Bolt is the production default Store: a single embedded bbolt database
// file, one bucket per domain. Writes fsync by default (bolt.Options with
// NoSync left false), so a Put that returns nil has survived a crash.
type Bolt struct {
	db *bolt.DB
}

// OpenBolt opens (creating if absent) the bbolt database at path.
func OpenBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("kvstore: open bbolt db %s: %w", path, err)
	}
	return &Bolt{db: db}, nil
}

// Close releases the underlying database file.
func (b *Bolt) Close() error {
	return b.db.Close()
}

func (b *Bolt) bucket(tx *bolt.Tx, domain string, create bool) (*bolt.Bucket, error) {
	if create {
		return tx.CreateBucketIfNotExists([]byte(domain))
	}
	return tx.Bucket([]byte(domain)), nil
}

// Scan returns up to limit keys in domain, in the order bbolt's cursor
// iterates them: byte-lexicographic, which matches BufferKey's sortable
// encoding.
func (b *Bolt) Scan(_ context.Context, domain string, limit int) ([]string, error) {
	var keys []string
	err := b.db.View(func(tx *bolt.Tx) error {
		bkt, err := b.bucket(tx, domain, false)
		if err != nil {
			return err
		}
		if bkt == nil {
			return nil
		}
		c := bkt.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			keys = append(keys, string(k))
			if limit > 0 && len(keys) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("kvstore: scan domain %s: %w", domain, err)
	}
	return keys, nil
}

// Get returns the value stored at key in domain.
func (b *Bolt) Get(_ context.Context, domain, key string) (string, bool, error) {
	var value string
	var ok bool
	err := b.db.View(func(tx *bolt.Tx) error {
		bkt, err := b.bucket(tx, domain, false)
		if err != nil {
			return err
		}
		if bkt == nil {
			return nil
		}
		v := bkt.Get([]byte(key))
		if v != nil {
			value = string(v)
			ok = true
		}
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("kvstore: get %s/%s: %w", domain, key, err)
	}
	return value, ok, nil
}

// Put writes value at key in domain, creating the domain's bucket on first use.
func (b *Bolt) Put(_ context.Context, domain, key, value string) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		bkt, err := b.bucket(tx, domain, true)
		if err != nil {
			return err
		}
		return bkt.Put([]byte(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("kvstore: put %s/%s: %w", domain, key, err)
	}
	return nil
}

// Delete removes key from domain. Deleting from a nonexistent bucket or an
// absent key is not an error.
func (b *Bolt) Delete(_ context.Context, domain, key string) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		bkt, err := b.bucket(tx, domain, false)
		if err != nil {
			return err
		}
		if bkt == nil {
			return nil
		}
		return bkt.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("kvstore: delete %s/%s: %w", domain, key, err)
	}
	return nil
}

var _ Store = (*Bolt)(nil)
