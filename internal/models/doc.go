// Package models defines the core domain models for todo4.
//
// # Models
//
//   - Todo: a task with content, due date and priority, owned by one user
//   - User: a registered account that owns todos
//   - OrderUpdate: one (id, order) pair of a drag-and-drop reorder batch
//
// # Ordering
//
// Each user's active (incomplete) todos form an ordering space. The Order field
// is the position of a todo within that space. New todos are appended after the
// current maximum; full re-ranks rewrite the whole space as a dense 0..N-1
// sequence. Completed todos leave the space and keep their last Order.
//
// # Design Principles
//
// 1. **Ownership first**: every todo carries its OwnerID and all queries are scoped by it
// 2. **Avoid circular references**: use ID strings instead of pointers for relationships
// 3. **Calendar dates**: Due has no time-of-day component; it is stored as YYYY-MM-DD
package models
