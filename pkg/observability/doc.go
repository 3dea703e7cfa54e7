/*
Package observability turns runtime lifecycle events into Prometheus metrics
and structured log records.

Both are exposed as domain.LifecycleHooks so they can be combined with
domain.Combine and handed to the engine.
*/
package observability
