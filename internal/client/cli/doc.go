// Package cli provides the interactive zkkeeper command-line client.
//
// It wires configuration, the local credential cache, the gRPC client, the
// auth service and the vault reconciler into a REPL. Passwords are read
// without echo; the vault is decrypted only in memory.
//
// Commands:
//   - register, login, logout, unlock
//   - list, show, add, delete, fav
//   - sync, generate, exit
//
// Changes made while the password is not resident or while the server is
// unreachable stay applied locally and are marked pending; "unlock" and
// "sync" push them.
package cli
