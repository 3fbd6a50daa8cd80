// Package cache keeps JSON snapshots of expensive pipeline results on disk, keyed by request.
package cache

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/harvest-ai/nni-research-cli/internal/properties"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	log "github.com/sirupsen/logrus"
)

type CacheEntry[T any] struct {
	Data      T         `json:"data"`
	CreatedAt time.Time `json:"created_at"`
	Checksum  string    `json:"checksum"`
}

type CacheService[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T) error
}

type FileCache[T any] struct {
	cacheDir string
	// MaxAge expires entries older than this. Zero keeps entries forever.
	MaxAge time.Duration
}

func NewFileCache[T any](cacheDir string) *FileCache[T] {
	return &FileCache[T]{cacheDir: cacheDir}
}

// DataDir returns ROOT_PATH/data/<subDir>.
func DataDir(subDir string) string {
	return filepath.Join(properties.RootPath(), "data", subDir)
}

// GenerateKey hashes the request parameters into a file-safe key.
func GenerateKey(params ...interface{}) string {
	var keyData string
	for _, param := range params {
		keyData += fmt.Sprintf("%v_", param)
	}
	h := sha1.New()
	h.Write([]byte(keyData))
	return hex.EncodeToString(h.Sum(nil))
}

// PolygonKey keys a request by the polygon WKT and its parameters.
func PolygonKey(polygon orb.Polygon, params ...interface{}) string {
	return GenerateKey(append([]interface{}{wkt.MarshalString(polygon)}, params...)...)
}

func (fc *FileCache[T]) Get(key string) (T, bool) {
	var zero T
	cacheFile := filepath.Join(fc.cacheDir, key+".json")

	data, err := os.ReadFile(cacheFile)
	if err != nil {
		return zero, false
	}

	var entry CacheEntry[T]
	if err := json.Unmarshal(data, &entry); err != nil {
		log.WithError(err).Warnf("[Cache] discarding unreadable entry %s", key)
		return zero, false
	}

	if entry.Checksum != fc.calculateChecksum(entry.Data) {
		log.Warnf("[Cache] checksum mismatch for entry %s", key)
		return zero, false
	}
	if fc.MaxAge > 0 && time.Since(entry.CreatedAt) > fc.MaxAge {
		return zero, false
	}

	log.WithField("key", key).Debug("[Cache] hit")
	return entry.Data, true
}

func (fc *FileCache[T]) Set(key string, data T) error {
	if err := os.MkdirAll(fc.cacheDir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	entry := CacheEntry[T]{
		Data:      data,
		CreatedAt: time.Now(),
		Checksum:  fc.calculateChecksum(data),
	}

	jsonData, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	cacheFile := filepath.Join(fc.cacheDir, key+".json")
	tmpFile := cacheFile + ".tmp"

	if err := os.WriteFile(tmpFile, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write temp cache file: %w", err)
	}

	if err := os.Rename(tmpFile, cacheFile); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to rename temp cache file: %w", err)
	}

	return nil
}

func (fc *FileCache[T]) calculateChecksum(data T) string {
	jsonData, _ := json.Marshal(data)
	hash := md5.Sum(jsonData)
	return hex.EncodeToString(hash[:])
}
