// Package modcache is the opt-in persistence layer SPEC_FULL.md's
// module-loader section adds on top of the in-memory per-Loader cache:
// a GORM/sqlite-backed store of already-compiled bytecode images keyed
// by (absolute module key, content hash), so an embedding host that
// evaluates the same library on every process start can skip the
// frontend and compiler entirely on a hit.
package modcache

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	log "github.com/sirupsen/logrus"

	"github.com/dustin/go-humanize"

	"github.com/polotto/hetu-script/compiler"
)

// entry is the GORM model backing the cache table. Key and ContentHash
// together form the lookup hetu.Engine's compileEntry performs; Blob
// is a gob-encoded compiler.Module.
type entry struct {
	gorm.Model
	Key         string `gorm:"index:idx_key_hash,unique"`
	ContentHash string `gorm:"index:idx_key_hash,unique"`
	Blob        []byte
}

// Cache wraps a sqlite-backed store of compiled bytecode images.
type Cache struct {
	db *gorm.DB
}

// Open creates or opens the sqlite database at path and ensures the
// cache table exists.
func Open(path string) (*Cache, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&entry{}); err != nil {
		return nil, err
	}
	return &Cache{db: db}, nil
}

// ContentHash fingerprints source so the cache can detect that a
// module's text changed since it was last compiled, even if its key
// did not.
func ContentHash(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached compiler.Module for (key, hash), if present.
func (c *Cache) Get(key, hash string) (*compiler.Module, bool, error) {
	var row entry
	err := c.db.Where("key = ? AND content_hash = ?", key, hash).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		log.Debugf("modcache: miss for %q", key)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var mod compiler.Module
	if err := gob.NewDecoder(bytes.NewReader(row.Blob)).Decode(&mod); err != nil {
		return nil, false, err
	}
	log.Debugf("modcache: hit for %q (%s)", key, humanize.Bytes(uint64(len(row.Blob))))
	return &mod, true, nil
}

// Put stores mod under (key, hash), replacing any previous entry for
// that key/hash pair - a module whose source changed gets a new hash
// and therefore a fresh row rather than overwriting the old one, so a
// rollback to previously-seen source is still a cache hit.
func (c *Cache) Put(key, hash string, mod *compiler.Module) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(mod); err != nil {
		return err
	}

	row := entry{Key: key, ContentHash: hash, Blob: buf.Bytes()}
	return c.db.Where("key = ? AND content_hash = ?", key, hash).
		Assign(entry{Blob: buf.Bytes()}).
		FirstOrCreate(&row).Error
}

// Close releases the underlying database connection.
func (c *Cache) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
