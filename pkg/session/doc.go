/*
Package session scopes wizard controllers to browser or API sessions.

A Manager creates one controller per session, serialises every action on a
session through a per-session lock and expires idle sessions after a TTL.
State lives in memory only; restarting the process drops every session.
*/
package session
