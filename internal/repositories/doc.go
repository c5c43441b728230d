// package repositories provides persistence layer implementations for note
// storage, handling CRUD operations, soft deletes, and sequence generation.
package repositories
