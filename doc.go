// Package auth provides account registration, HOC approval and token based
// authentication for the Pulse scheduling service.
//
// Account lifecycle:
//   - Accounts carry an AccountState (student, pending_hoc, hoc, instructor).
//     The persisted role/isHOC/isHOCPending triple is derived from the state
//     at the storage boundary, so the two flags can never both be set.
//   - Registrar validates a RegistrationRequest, derives the initial state
//     from the requested role and persists the account. HOC requests start in
//     pending_hoc and need ApproveHOC (or RejectHOC) from an administrator.
//   - AccountStateMachine owns the transition graph. Transitions are applied
//     with AccountStore.CompareAndSwapState so concurrent reviews resolve to a
//     single winner.
//
// Authentication:
//   - Auther checks credentials and issues HS256 tokens that carry the account
//     id and email only. Roles are read from the store on every request via
//     CurrentAccount, so an approval takes effect on the next lookup without
//     re-issuing tokens.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by the registrar, the
//     state machine and Auther. Sinks run best-effort (errors are logged).
package auth
