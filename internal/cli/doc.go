// Package cli provides the interactive todo command-line client.
//
// App binds a SessionService and a TodoService to a line-oriented REPL.
// Signed out, the REPL accepts login, google and exit. Signed in, it adds
// the task and subtask commands listed by "help". Task and subtask IDs may
// be shortened to any unique prefix, as printed by "list".
//
// The REPL is started via App.Run(ctx), which blocks until the user exits
// or input ends.
package cli
