// Package workflow runs a fixed task graph over a typed run state.
//
// A graph is declared with a Builder and validated once. The executor then
// runs it phase by phase:
//   - nodes of a phase run concurrently against the same snapshot of the state
//   - a phase ends only when every node in it has returned (barrier)
//   - the returned patches are merged in declaration order before the next phase
//
// Each field of the state has a merge policy. Warnings are appended, every
// other field is replaced and owned by exactly one node.
package workflow
