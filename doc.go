// Package symdex maintains a persistent, incrementally updated index of
// source-code symbols over a workspace and serves fast multi-keyword
// substring search over it. Symbol extraction is delegated to a pluggable
// provider; the index itself is a derived SQLite cache that self-heals by
// destructive rebuild.
package symdex
