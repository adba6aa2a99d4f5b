// Package digester computes SHA-256 digests of rendered documents and keeps
// them in companion .sha256 files so a consumer can check that a document
// was not altered after rendering.
package digester
