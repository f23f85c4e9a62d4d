package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli"

	"gitlab.com/fcv-2025.net/coderunner/internal/config"
	"gitlab.com/fcv-2025.net/coderunner/internal/core/services/toolchain"
	"gitlab.com/fcv-2025.net/coderunner/internal/domain"
	logger2 "gitlab.com/fcv-2025.net/coderunner/internal/global/logger"
	"gitlab.com/fcv-2025.net/coderunner/internal/handlers/run"
)

var languagesCmd = cli.Command{
	Name:  "languages",
	Usage: "list the supported languages and their toolchains",
	Action: func(ctx *cli.Context) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "LANGUAGE\tKIND\tCOMPILE\tRUN")
		for _, spec := range toolchain.DefaultRegistry().Specs() {
			compile := strings.Join(spec.Compile, " ")
			if compile == "" {
				compile = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", spec.Language, spec.Kind, compile, strings.Join(spec.Run, " "))
		}
		return w.Flush()
	},
}

var checkCmd = cli.Command{
	Name:        "check",
	Usage:       "report which toolchain binaries are on PATH",
	Description: `The check command exits non-zero with --strict when any toolchain is missing`,
	Flags: []cli.Flag{
		cli.BoolFlag{
			Name:  "strict",
			Usage: "fail when a toolchain binary is missing",
		},
	},
	Action: func(ctx *cli.Context) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "LANGUAGE\tBINARY\tPATH")
		var missing []string
		for _, spec := range toolchain.DefaultRegistry().Specs() {
			for _, bin := range spec.Binaries() {
				path, err := exec.LookPath(bin)
				if err != nil {
					path = "missing"
					missing = append(missing, spec.Language+"/"+bin)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", spec.Language, bin, path)
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}
		if ctx.Bool("strict") && len(missing) > 0 {
			return cli.NewExitError(fmt.Sprintf("missing toolchains: %s", strings.Join(missing, ", ")), 1)
		}
		return nil
	},
}

var execCmd = cli.Command{
	Name:        "exec",
	Usage:       "compile and run one source file locally",
	Description: `The exec command runs a file through the executor without the queue and prints the response as json`,
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "lang,l",
			Value: "",
			Usage: "language of source code",
		},
		cli.StringFlag{
			Name:  "src,s",
			Value: "",
			Usage: "source code file",
		},
		cli.StringFlag{
			Name:  "cases,c",
			Value: "",
			Usage: `json file with [{"input": ..., "output": ...}]; omit for a free run`,
		},
	},
	Action: func(ctx *cli.Context) error {
		language, src := ctx.String("lang"), ctx.String("src")
		if language == "" || src == "" {
			return cli.NewExitError("--lang and --src are required", 2)
		}
		code, err := os.ReadFile(src)
		if err != nil {
			return fmt.Errorf("failed to read source: %w", err)
		}

		var cases []domain.TestCase
		if path := ctx.String("cases"); path != "" {
			raw, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read cases: %w", err)
			}
			if err := json.Unmarshal(raw, &cases); err != nil {
				return fmt.Errorf("failed to parse cases: %w", err)
			}
		}

		runnerCfg := config.NewRunnerCfg()
		runnerCfg.WorkRoot = filepath.Join(runnerCfg.WorkRoot, "exec")
		executor := newExecutionService(runnerCfg, toolchain.DefaultRegistry(), nil, logger2.Logger)
		if !executor.Supports(language) {
			return cli.NewExitError("unsupported language: "+language, 2)
		}

		result := executor.Execute(context.Background(), domain.NewSubmission(language, string(code), cases))
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(run.NewRunResponse(result)); err != nil {
			return err
		}
		if result.Status != domain.StatusSuccess {
			return cli.NewExitError("", 1)
		}
		return nil
	},
}
