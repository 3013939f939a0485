//go:build ignore

// Package main generates a synthetic JSONL book corpus for benchmarking.
// Usage: go run scripts/generate-corpus.go -docs 10000 -output testdata/bench/books.jsonl
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

var (
	numDocs    = flag.Int("docs", 10000, "Number of documents to generate")
	outputFile = flag.String("output", "testdata/bench/books.jsonl", "Output file")
	seed       = flag.Int64("seed", 42, "Random seed for reproducibility")
)

var (
	adjectives = []string{"Quick", "Silent", "Hidden", "Lost", "Golden", "Broken", "Distant", "Wild", "Frozen", "Secret"}
	nouns      = []string{"Fox", "River", "Garden", "Kingdom", "Engine", "Harbor", "Forest", "Letter", "Mountain", "Kitchen"}
	authors    = []string{"Ada Byron", "Alan Turing", "Grace Hopper", "Edsger Dijkstra", "Barbara Liskov", "Donald Knuth", "Ken Thompson", "Rob Pike"}
	genres     = []string{"Nature", "Food", "History", "Science", "Fiction", "Travel", "Poetry"}
	words      = []string{
		"the", "a", "fox", "jumps", "over", "lazy", "dog", "river", "flows", "through", "valley",
		"recipe", "bread", "oven", "slowly", "kingdom", "falls", "engine", "steam", "winter",
		"harbor", "ships", "letter", "arrives", "late", "mountain", "summit", "garden", "grows",
	}
)

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	if err := os.MkdirAll(filepath.Dir(*outputFile), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}
	f, err := os.Create(*outputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating %s: %v\n", *outputFile, err)
		os.Exit(1)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for i := 0; i < *numDocs; i++ {
		doc := map[string]string{
			"id":     fmt.Sprintf("%d", i+1),
			"title":  fmt.Sprintf("The %s %s", pick(rng, adjectives), pick(rng, nouns)),
			"author": pick(rng, authors),
			"year":   fmt.Sprintf("%d", 1900+rng.Intn(125)),
			"body":   sentence(rng, 20+rng.Intn(60)),
		}
		// Roughly one in ten books has no genre.
		if rng.Intn(10) > 0 {
			doc["genre"] = pick(rng, genres)
		}
		if err := enc.Encode(doc); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing document %d: %v\n", i, err)
			os.Exit(1)
		}
	}
	if err := w.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "Error flushing %s: %v\n", *outputFile, err)
		os.Exit(1)
	}

	fmt.Printf("Generated %d documents in %s.\n", *numDocs, *outputFile)
}

func pick(rng *rand.Rand, pool []string) string {
	return pool[rng.Intn(len(pool))]
}

func sentence(rng *rand.Rand, n int) string {
	out := make([]string, n)
	for i := range out {
		out[i] = pick(rng, words)
	}
	return strings.Join(out, " ")
}
