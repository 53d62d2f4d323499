// verifyctl is the administrator console for the therapist verification
// pipeline. It loads the roster from the verification service, renders the
// four-stage stepper and submits decisions through the transition executor.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/pflag"
)

const usage = `usage: verifyctl [--env-file .env] <command> [flags]

commands:
  list   [--status all|onboarding|active|rejected|suspended]
  show   <therapist-id>
  decide <therapist-id> <license|background_check|final> <approve|reject> [--notes text]
  token  --subject name [--ttl 8h]
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "verifyctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	global := pflag.NewFlagSet("verifyctl", pflag.ContinueOnError)
	global.SetOutput(stderr)
	global.SetInterspersed(false)
	envFile := global.String("env-file", ".env", "dotenv file to read before the environment")
	global.Usage = func() { fmt.Fprint(stderr, usage) }
	if err := global.Parse(args); err != nil {
		return err
	}
	rest := global.Args()
	if len(rest) == 0 {
		global.Usage()
		return fmt.Errorf("missing command")
	}

	cfg, err := loadSettings(*envFile)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	cmd, cmdArgs := rest[0], rest[1:]
	if cmd == "token" {
		return runToken(cfg, cmdArgs, stdout, stderr)
	}

	app, err := newConsole(cfg, stdout, stderr)
	if err != nil {
		return err
	}
	switch cmd {
	case "list":
		return app.list(ctx, cmdArgs)
	case "show":
		return app.show(ctx, cmdArgs)
	case "decide":
		return app.decide(ctx, cmdArgs)
	default:
		global.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}
