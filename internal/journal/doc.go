// Package journal persists an append-only record of every copied question,
// answer, and article so operators can map source URLs to their new
// destination URLs after a run. It is never consulted to skip work.
package journal
