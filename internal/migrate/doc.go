// Package migrate copies questions with their answers, and articles, from a private team
// instance to the main knowledge-base instance. Every write is attributed to the original
// author through an impersonation token requested just before the write, or to a configured
// fallback account when the author no longer resolves.
//
// Copies are not idempotent: running a copy twice creates duplicates. Bulk operations stop at
// the first failure unless ContinueOnError is set.
package migrate
