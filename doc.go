// Package identity implements the identity and session lifecycle for an
// invite-only admin platform: invitation-gated registration, password reset
// and change, multi-session management, and account suspension cascades.
//
// Registration:
//   - Accounts are created exclusively through a pending Invitation. The
//     RegisterUserHandler re-validates the invitation, creates the user, and
//     flips the invitation to accepted inside one Bun transaction, so a token
//     consumes exactly once even under concurrent attempts. Email and role
//     always come from the invitation row, never from client input.
//
// Password reset:
//   - InitializePasswordResetHandler is enumeration resistant: the public
//     response is identical whether or not the email maps to an account.
//     Issuing a token invalidates all prior tokens for that email.
//   - FinalizePasswordResetHandler burns the token and deletes every session
//     for the account in the same transaction that updates the hash.
//
// Sessions and lifecycle:
//   - SessionManager lists, revokes, and mass-revokes persisted sessions,
//     always scoped to the owning user.
//   - AccountLifecycleController moves accounts through the status graph via
//     UserStateMachine. Entering suspended wipes the session set immediately.
//
// Activity sinks:
//   - ActivitySink is a fire-and-forget audit emitter invoked after the
//     primary state change commits. Sink failures are logged, never
//     propagated, so auditing cannot roll back a committed transition.
package identity
