package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/IsnuMdr/todo-app/internal/common"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	GoogleLogin(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	List(ctx context.Context, args []string) error
	Add(ctx context.Context) error
	Edit(ctx context.Context, args []string) error
	Toggle(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	AddSubtask(ctx context.Context, args []string) error
	RenameSubtask(ctx context.Context, args []string) error
	ToggleSubtask(ctx context.Context, args []string) error
	DeleteSubtask(ctx context.Context, args []string) error
	Stats(ctx context.Context) error
}

const (
	helpLoggedOut = "Available commands: login, google, exit"
	helpLoggedIn  = "Available commands: (l)ist [active|done], add, edit <id>, done <id>, rm <id>, " +
		"sub <id>, subdone <id> <sub>, subren <id> <sub>, subrm <id> <sub>, stats, whoami, logout, exit"
)

// runREPL reads commands line by line from reader and dispatches them to a.
// The loop exits on EOF or when the user types "exit" or "quit". Command
// errors are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("todo%s> ", statusFn()))
		line, err := readLine(reader)
		if err != nil {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpLoggedOut)
			}
		case "login", "register":
			err = a.Login(ctx)
		case "google":
			err = a.GoogleLogin(ctx)
		case "logout":
			err = a.Logout(ctx)
		case "whoami":
			err = a.WhoAmI(ctx)
		case "l", "list":
			err = a.List(ctx, args)
		case "add":
			err = a.Add(ctx)
		case "edit":
			err = a.Edit(ctx, args)
		case "done", "toggle":
			err = a.Toggle(ctx, args)
		case "rm", "delete":
			err = a.Delete(ctx, args)
		case "sub":
			err = a.AddSubtask(ctx, args)
		case "subren":
			err = a.RenameSubtask(ctx, args)
		case "subdone":
			err = a.ToggleSubtask(ctx, args)
		case "subrm":
			err = a.DeleteSubtask(ctx, args)
		case "stats":
			err = a.Stats(ctx)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", describe(err))
		}
	}
}

// describe turns domain errors into short messages for the prompt.
func describe(err error) string {
	switch {
	case errors.Is(err, common.ErrorUnauthorized):
		return "not logged in"
	case errors.Is(err, common.ErrInvalidCredentials):
		return "invalid email or password"
	default:
		return err.Error()
	}
}
