package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn and printFn are test seams for user-facing output. In tests,
// replace them with stubs.
var (
	printlnFn = fmt.Println
	printFn   = fmt.Print
)

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Unlock(ctx context.Context) error
	Logout(ctx context.Context) error
	List(ctx context.Context) error
	Show(ctx context.Context, id string) error
	Add(ctx context.Context) error
	Delete(ctx context.Context, id string) error
	Favorite(ctx context.Context, id string) error
	Sync(ctx context.Context) error
	Generate(ctx context.Context, args []string) error
}

// runREPL reads commands line by line and dispatches them to a. It returns
// on EOF or when the user types "exit" or "quit".
//
//	Not logged in:
//	  help, register, login, generate, exit | quit
//
//	Logged in:
//	  help, (l)ist, show <id>, add, delete <id>, fav <id>, sync, unlock,
//	  generate [length], logout, exit | quit
//
// Handler errors are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printFn(fmt.Sprintf("zk %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if requiresLogin(cmd) && !a.isLoggedIn() {
			printlnFn("Please login first")
			continue
		}

		err = nil
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: (l)ist, show <id>, add, delete <id>, fav <id>, sync, unlock, generate [length], logout, exit")
			} else {
				printlnFn("Available commands: register, login, generate [length], exit")
			}

		case "register":
			err = a.Register(ctx)

		case "login":
			err = a.Login(ctx)

		case "unlock":
			err = a.Unlock(ctx)

		case "logout":
			err = a.Logout(ctx)

		case "l", "list":
			err = a.List(ctx)

		case "show", "delete", "fav":
			if len(args) != 1 {
				printlnFn(fmt.Sprintf("Usage: %s <id>", cmd))
				continue
			}
			switch cmd {
			case "show":
				err = a.Show(ctx, args[0])
			case "delete":
				err = a.Delete(ctx, args[0])
			default:
				err = a.Favorite(ctx, args[0])
			}

		case "add":
			err = a.Add(ctx)

		case "sync":
			err = a.Sync(ctx)

		case "generate":
			err = a.Generate(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err)
		}
	}
}

func requiresLogin(cmd string) bool {
	switch cmd {
	case "l", "list", "show", "add", "delete", "fav", "sync", "unlock", "logout":
		return true
	default:
		return false
	}
}
