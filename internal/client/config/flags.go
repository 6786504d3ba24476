package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/zkkeeper/internal/flagx"
	"github.com/dmitrijs2005/zkkeeper/internal/kdf"
)

// parseFlags populates Config from the short flags it knows about. Other
// arguments are filtered out with flagx.FilterArgs.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-f", "-r", "-s", "-k", "-i", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.StringVar(&cfg.DatabasePath, "f", cfg.DatabasePath, "local database path")
	requestTimeout := fs.Int("r", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	sessionTTL := fs.Int("s", int(cfg.SessionTTL.Seconds()), "session TTL (in seconds)")
	fs.StringVar(&cfg.KDFAlgorithm, "k", cfg.KDFAlgorithm, "key derivation algorithm for new accounts")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*requestTimeout) * time.Second
	cfg.SessionTTL = time.Duration(*sessionTTL) * time.Second
	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second

	if _, err := kdf.ParamsFor(cfg.KDFAlgorithm); err != nil {
		panic(err)
	}
}
