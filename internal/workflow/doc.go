// Package workflow owns the workflow data the views are built from.
//
// A [Manager] holds the canonical template list, instance list and statistics.
// It loads all three concurrently on [Manager.RefreshAll], hands readers
// immutable [Snapshot] copies, and performs every mutation as an API call
// followed by a full reload. Nothing outside the Manager writes to its state.
//
// Key types:
//   - [Manager] is the data owner and refresh entry point
//   - [Snapshot] is a deep copy of the state at one point in time
//   - [Source] lists the data; [Editor] and [Detailer] are optional extras
//   - [InstanceDetail] is the instance view: record, logs and next step
//
// [MapStatistics] normalizes the server's statistics object, whose keys vary
// between server versions.
package workflow
