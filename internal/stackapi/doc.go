// Package stackapi is a typed client for the knowledge-base REST API.
//
// It decodes questions, answers, and articles once at the boundary (including
// the loosely shaped owner field), authenticates with a static bearer token,
// and threads impersonation credentials explicitly through every write call.
package stackapi
