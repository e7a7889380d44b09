// Package cache provides the session content cache: a string-keyed store
// with single-flight fetch de-duplication, used for generated scripts
// (theme -> script) and synthesized audio ((text, speed) -> clip bytes).
package cache
