// Command nuthatch runs the HTTP/1.1 + WebSocket static-file/echo server.
//
// Usage: nuthatch [options] <port> [<ip>]
//
//	--debug               set log level to DEBUG
//	--no-fork             serve connections synchronously on the accept loop
//	--static-files <path> override the static-files root (default ./web)
//
// Grounded on original_source/src/server-main.c's usage/main: a manual
// argument loop rather than a flag-parsing library, matching both the
// teacher's minimalism and the original's own style, since nothing in the
// example pack grounds a CLI framework for a server this small.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/tommika/nuthatch/internal/logging"
	"github.com/tommika/nuthatch/pkg/nuthatch/sandbox"
	"github.com/tommika/nuthatch/pkg/nuthatch/server"
)

const defaultStaticDir = "./web"

type options struct {
	debug       bool
	noFork      bool
	staticFiles string
	port        int
	ip          string
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: nuthatch [options] <port> [<ip>]

options:
  --debug                set log level to DEBUG
  --no-fork              serve connections synchronously on the accept loop
  --static-files <path>  override the static-files root (default ./web)`)
}

func parseArgs(args []string) (*options, error) {
	opt := &options{staticFiles: defaultStaticDir}
	var positional []string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--debug":
			opt.debug = true
		case "--no-fork":
			opt.noFork = true
		case "--static-files":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--static-files requires a path argument")
			}
			i++
			opt.staticFiles = args[i]
		default:
			if len(args[i]) > 2 && args[i][:2] == "--" {
				return nil, fmt.Errorf("unknown option: %s", args[i])
			}
			positional = append(positional, args[i])
		}
	}

	switch len(positional) {
	case 1:
		// port only
	case 2:
		opt.ip = positional[1]
	default:
		return nil, fmt.Errorf("expected <port> [<ip>], got %d positional argument(s)", len(positional))
	}

	port, err := strconv.Atoi(positional[0])
	if err != nil || port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid port: %q", positional[0])
	}
	opt.port = port

	// net.ParseIP plus an IPv4 check (To4) is strictly stricter than the original's
	// net_atoipv4 (which silently accepts non-numeric octets as zero via
	// atoi); this is an intentional divergence documented in
	// SPEC_FULL.md §6.
	if opt.ip != "" && net.ParseIP(opt.ip).To4() == nil {
		return nil, fmt.Errorf("invalid ip address: %q", opt.ip)
	}

	return opt, nil
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opt, err := parseArgs(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		usage()
		return 1
	}

	log := logging.New(os.Stderr, opt.debug)

	root, err := sandbox.New(opt.staticFiles)
	if err != nil {
		log.Error("invalid static-files root", "path", opt.staticFiles, "err", err)
		return 1
	}

	addr := net.JoinHostPort(opt.ip, strconv.Itoa(opt.port))
	srv := server.New(server.Config{
		Addr:   addr,
		Root:   root,
		Log:    log,
		NoFork: opt.noFork,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Serve(ctx); err != nil {
		log.Error("server exited with error", "err", err)
		return 1
	}
	log.Info("shutdown complete")
	return 0
}
