// Package domain holds the entities shared across the agent: the lead and
// its LinkedIn activity, the generated insights, the run request and the
// persisted run record.
//
// Insight types double as the contract handed to the language model: their
// json, jsonschema and validate tags describe the shape and constraints a
// reply must satisfy. The HTTP layer keeps its own response types.
package domain
