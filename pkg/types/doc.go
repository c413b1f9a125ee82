// Package types defines the shared value types exchanged between the
// analytics engine, the HTTP API and the live update hub: canonical periods,
// evaluation labels and the RankEvaluation result with its JSON rendering.
package types
