/*
Package state implements the per-session variable store.

A Store owns every variable of one session and enforces the state size ceiling:
a write that would grow the store past its limit is rejected and leaves the store
untouched. Executors mutate a Store through a Tx so an abandoned block never
leaks partial writes; observers registered with Observe see committed changes
only, which is how the persistence bridge is fed.
*/
package state
