// Package credentials resolves access tokens and API keys from environment
// variables, files, or inline values so configuration never has to embed
// secrets directly.
package credentials
