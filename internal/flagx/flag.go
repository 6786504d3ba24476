// Package flagx lets several flag sets share one command line. Each set
// parses only the flags it owns, so the config file path can be read
// before the main flag set exists.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// ConfigEnv names the environment variable consulted when no -c/-config
// flag is given.
const ConfigEnv = "ZKKEEPER_CONFIG"

// FilterArgs keeps the arguments that belong to the named flags. A flag
// matches in single or double dash form, either as "-f=value" or as "-f"
// followed by a value that does not itself start with a dash. Scanning
// stops at a bare "--".
func FilterArgs(args []string, names []string) []string {
	owned := make(map[string]struct{}, len(names))
	for _, n := range names {
		owned[strings.TrimLeft(n, "-")] = struct{}{}
	}

	kept := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}
		if !strings.HasPrefix(arg, "-") {
			continue
		}

		name, _, inline := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if _, ok := owned[name]; !ok {
			continue
		}
		kept = append(kept, arg)

		if !inline && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			kept = append(kept, args[i+1])
			i++
		}
	}
	return kept
}

// ConfigPath returns the value of the last -c or -config flag in args, or
// "" when neither is present.
func ConfigPath(args []string) string {
	var path string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(discard{})
	fs.StringVar(&path, "config", "", "path to JSON config file")
	fs.StringVar(&path, "c", "", "path to JSON config file (shorthand)")
	_ = fs.Parse(FilterArgs(args, []string{"c", "config"}))

	return path
}

// JSONConfigFile resolves the config file for the running process: the
// command line wins over ConfigEnv.
func JSONConfigFile() string {
	if p := ConfigPath(os.Args[1:]); p != "" {
		return p
	}
	return os.Getenv(ConfigEnv)
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
