package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli"

	"gitlab.com/fcv-2025.net/coderunner/internal/adapter/logging"
	"gitlab.com/fcv-2025.net/coderunner/internal/adapter/process"
	logger2 "gitlab.com/fcv-2025.net/coderunner/internal/global/logger"
)

const (
	version = "1.0.0"
	usage   = `code execution service

coderunner compiles and runs untrusted submissions against their test cases
through a bounded pool of execution slots.`
)

func main() {
	// a run spawned through the limit helper never gets past this line
	process.Init()

	app := cli.NewApp()
	app.Name = "coderunner"
	app.Usage = usage
	app.Version = version

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "env",
			Value: "",
			Usage: "load <env>.env before reading the configuration",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "enable debug output for logging",
		},
	}
	app.Commands = []cli.Command{
		serveCmd,
		languagesCmd,
		checkCmd,
		langCmd,
		execCmd,
	}

	app.Before = func(ctx *cli.Context) error {
		if env := ctx.GlobalString("env"); env != "" {
			if err := godotenv.Load(env + ".env"); err != nil {
				return fmt.Errorf("error loading %s.env file: %w", env, err)
			}
		}
		if ctx.GlobalBool("debug") || os.Getenv("DEBUG_MODE") == "true" {
			logger2.Logger = logging.NewDevelopmentLogger()
		}
		return nil
	}
	app.After = func(*cli.Context) error {
		_ = logger2.Logger.Sync()
		return nil
	}

	if err := app.Run(os.Args); err != nil {
		logger2.Error("coderunner exited with error", "error", err)
		os.Exit(1)
	}
}
