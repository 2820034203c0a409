// Package taggedcontent provides a repository for user-authored posts that
// reference tagged media objects, related posts, and profile metadata.
//
// The package exposes a single Repo facade that orchestrates three backing
// stores: a relational database (the source of truth), a content-addressed
// object store for media blobs, and a full-text search index maintained as a
// best-effort projection. An in-process cache shields hot user reads, and an
// asynchronous pipeline derives preview artifacts for uploaded media.
//
// Callers never mutate entities through the Repo directly. They first obtain
// a capability handle (OptionalUser, AuthenticatedUser, or Admin) by proving
// an authorization level, and every entity operation hangs off that handle.
package taggedcontent
