// Package source provides document providers for the indexer: JSON lines
// files, SQL queries, Redis hashes and Kafka topics.
//
// Every provider follows the document.Provider contract. Iterate opens a
// cursor, and Close releases it whether or not iteration finished and may
// be called more than once.
package source
