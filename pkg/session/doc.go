/*
Package session implements explicit runtime sessions.

A Session owns one State Store together with the execution bookkeeping of
the two-phase form protocol (remembered answers and the checkpoint of a
paused pass). The Manager serializes operations per session with
reference-counted local locks and, optionally, a distributed locker so that
replicas sharing a Persistence Bridge never run two passes of the same
session at once.
*/
package session
