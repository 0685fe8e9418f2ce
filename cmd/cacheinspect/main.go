// Package main provides a read-only inspector for the enrichment cache.
//
// It walks the Badger cache the ingestion pipeline fills with Gemini
// responses and prints what has been cached per source identifier, plus
// aggregate genre counts. Useful for checking what a re-run would skip
// paying for.
//
// Usage:
//
//	CACHE_PATH=~/Shelfmark/data/cache/enrichment go run ./cmd/cacheinspect
package main

import (
	"encoding/json/v2"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"

	"github.com/shelfmark/shelfmark-server/internal/store"
)

const (
	classifyPrefix = "enrich:classify:"
	describePrefix = "enrich:describe:"
)

func main() {
	cachePath := os.Getenv("CACHE_PATH")
	if cachePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("Failed to resolve home directory: %v", err)
		}
		cachePath = filepath.Join(home, "Shelfmark", "data", "cache", "enrichment")
	}

	opts := badger.DefaultOptions(cachePath).
		WithReadOnly(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open cache: %v", err)
	}
	defer db.Close()

	fmt.Println("=== Enrichment Cache Inspection ===")
	fmt.Println()

	classifications := 0
	descriptions := 0
	genreCounts := make(map[string]int)

	err = db.View(func(txn *badger.Txn) error {
		fmt.Println("Classifications:")

		itOpts := badger.DefaultIteratorOptions
		itOpts.Prefix = []byte(classifyPrefix)
		it := txn.NewIterator(itOpts)

		for it.Seek([]byte(classifyPrefix)); it.ValidForPrefix([]byte(classifyPrefix)); it.Next() {
			item := it.Item()
			sourceID := string(item.Key())[len(classifyPrefix):]

			err := item.Value(func(val []byte) error {
				var cached store.CachedClassification
				if err := json.Unmarshal(val, &cached); err != nil {
					return err
				}

				classifications++
				genres := []string{}
				if cached.Classification != nil {
					genres = cached.Classification.Genres
				}
				for _, g := range genres {
					genreCounts[g]++
				}
				fmt.Printf("  %-40s %v (cached %s)\n",
					sourceID, genres, cached.FetchedAt.Format("2006-01-02"))
				return nil
			})
			if err != nil {
				fmt.Printf("  %-40s <unreadable: %v>\n", sourceID, err)
			}
		}
		it.Close()

		itOpts = badger.DefaultIteratorOptions
		itOpts.Prefix = []byte(describePrefix)
		it = txn.NewIterator(itOpts)
		defer it.Close()

		for it.Seek([]byte(describePrefix)); it.ValidForPrefix([]byte(describePrefix)); it.Next() {
			descriptions++
		}

		return nil
	})
	if err != nil {
		log.Fatalf("Failed to read cache: %v", err)
	}

	fmt.Println()
	fmt.Printf("Cached classifications: %d\n", classifications)
	fmt.Printf("Cached descriptions:    %d\n", descriptions)

	if len(genreCounts) > 0 {
		fmt.Println()
		fmt.Println("Genre distribution:")
		for genre, count := range genreCounts {
			fmt.Printf("  %-30s %d\n", genre, count)
		}
	}
}
