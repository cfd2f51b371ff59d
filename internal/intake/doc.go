// Package intake implements the photo/location conversation: the per-user
// session, the state machine that decides transitions, and the directives it
// returns for output collaborators to carry out.
package intake
