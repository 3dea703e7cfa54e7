/*
Package ports defines the driven ports (interfaces) of the livemd runtime.

These interfaces decouple the core from external implementations, allowing the
runtime to mirror variables into various storage backends, read documents from
different sources and coordinate sessions across replicas.

# Key Interfaces

  - VariableStore: the Persistence Bridge, a row-per-variable store keyed by (session, name).
  - DocumentLoader: loads Markdown documents (e.g. from Loam or memory).
  - DistributedLocker: provides distributed locking for concurrent session access.
  - Runtime: the surface transports (HTTP, MCP) drive.
*/
package ports
