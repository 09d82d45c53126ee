// Package allocation is the resource allocation engine of the retreat
// administration service.
//
// It assigns course participants to four mutually exclusive pools (rooms,
// dining seats, meditation hall seats and pagoda cells) and contains no I/O
// of its own.  Callers hand it a fresh participant snapshot plus an explicit
// configuration value and get back a plan; writes go through the small
// Store / Journal interfaces declared here.
//
// # Components
//
//   - Classifier: Rank, ParseCourseHistory, SeniorityScore, SortByPriority.
//   - Grid generator: ColumnLabels, ChowkyLabels, SeatSequence, LayoutFor.
//   - Occupancy index: BuildIndex, Available, Catalog.
//   - Auto-assignment: PlanHallSeating, PersistAssignments.
//   - Move/swap protocol: Selection, PlanMove, Executor.
//
// # Consistency
//
// The index is never patched.  Every operation that depends on occupancy
// must be given a snapshot read from the store immediately before it runs.
package allocation
