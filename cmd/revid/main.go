// cmd/revid/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Corphon/RevidClone/internal/app"
	"github.com/Corphon/RevidClone/internal/config"
	"github.com/Corphon/RevidClone/internal/utils"
)

const usage = `Offline video project pipeline

Usage:
  revid init <title> --brief TEXT [--tone friendly] [--audience "general audience"] [--duration 2]
  revid script <project_id>
  revid storyboard <project_id>
  revid render <project_id> [--out PATH]
  revid list
  revid export <project_id> [--format markdown|txt|html|json] [--out PATH]
  revid serve [--port PORT]
  revid bootstrap [--repo-url URL] [--branch NAME] [--destination DIR] [--skip-installs]
`

// 退出码
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	utils.GetLogger().Close()
	os.Exit(code)
}

// run dispatches one command. Results go to stdout, diagnostics to stderr.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return exitUsage
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return exitUsage
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "error: load config: %v\n", err)
		return exitError
	}
	if err := app.ConfigureLogging(cfg); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitError
	}

	env := &cmdEnv{ctx: ctx, cfg: cfg, stdout: stdout, stderr: stderr}
	if err := cmd(env, args[1:]); err != nil {
		var ue usageError
		if errors.As(err, &ue) {
			fmt.Fprintf(stderr, "%s: %v\n\n%s", args[0], ue.err, usage)
			return exitUsage
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitError
	}
	return exitOK
}
