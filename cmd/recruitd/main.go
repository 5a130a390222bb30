// Command recruitd hosts a recruitment engine over the configured store and
// serves its inspection endpoints.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/project-flogo/core/support/log"
	"github.com/project-flogo/recruit"
	"github.com/project-flogo/recruit/support"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run serves until ctx is done
func run(ctx context.Context, out io.Writer, args []string) error {
	flagSet := flag.NewFlagSet("recruitd", flag.ContinueOnError)
	flagSet.SetOutput(out)
	configFile := flagSet.String("config", support.GetConfigFile(), "path to the YAML configuration file")
	inspectPort := flagSet.Int("port", 0, "serve the inspection endpoints on this port")
	showVersion := flagSet.Bool("version", false, "print the version and exit")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if *showVersion {
		fmt.Fprintf(out, "recruitd %s\n", recruit.Version())
		return nil
	}

	cfg, err := support.LoadConfig(*configFile)
	if err != nil {
		return err
	}
	if *inspectPort > 0 {
		cfg.Inspect.Enabled = true
		cfg.Inspect.Port = *inspectPort
	}
	cfg.Processes = append(cfg.Processes, flagSet.Args()...)

	logger := log.ChildLogger(log.RootLogger(), "recruitd")

	rt, err := recruit.New(ctx, cfg, nil)
	if err != nil {
		return err
	}
	if err := rt.Start(ctx); err != nil {
		_ = rt.Stop()
		return err
	}
	logger.Infof("recruitd %s started", recruit.Version())

	<-ctx.Done()

	logger.Info("recruitd stopping")
	return rt.Stop()
}
