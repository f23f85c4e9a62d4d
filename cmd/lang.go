package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli"

	"gitlab.com/fcv-2025.net/coderunner/internal/adapter/postgres/languageconfig"
	"gitlab.com/fcv-2025.net/coderunner/internal/config"
	"gitlab.com/fcv-2025.net/coderunner/internal/core/ports/secondary"
	"gitlab.com/fcv-2025.net/coderunner/internal/core/services/toolchain"
	"gitlab.com/fcv-2025.net/coderunner/internal/domain"
	logger2 "gitlab.com/fcv-2025.net/coderunner/internal/global/logger"
)

// limitChange holds the overrides given on the command line; nil leaves the stored value
type limitChange struct {
	description *string
	timeoutMs   *int
	memoryMB    *int
	stackMB     *int
}

var langCmd = cli.Command{
	Name:        "lang",
	Usage:       "manage per-language limit overrides in postgres",
	Description: `The lang command edits the language_config table read by serve at startup; it needs DATABASE_URL`,
	Subcommands: []cli.Command{
		{
			Name:  "list",
			Usage: "show every stored override",
			Action: func(ctx *cli.Context) error {
				return withLanguageRepo(func(c context.Context, repo secondary.LanguageConfigRepository) error {
					return listOverrides(c, repo, os.Stdout)
				})
			},
		},
		{
			Name:      "set",
			Usage:     "create or update the override of one language",
			ArgsUsage: "<language>",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "description", Usage: "human readable name"},
				cli.IntFlag{Name: "timeout-ms", Usage: "per-run wall-clock timeout"},
				cli.IntFlag{Name: "memory-mb", Usage: "memory cap"},
				cli.IntFlag{Name: "stack-mb", Usage: "stack cap"},
			},
			Action: func(ctx *cli.Context) error {
				change := limitChange{}
				if ctx.IsSet("description") {
					v := ctx.String("description")
					change.description = &v
				}
				change.timeoutMs = intFlag(ctx, "timeout-ms")
				change.memoryMB = intFlag(ctx, "memory-mb")
				change.stackMB = intFlag(ctx, "stack-mb")
				return withLanguageRepo(func(c context.Context, repo secondary.LanguageConfigRepository) error {
					cfg, err := setOverride(c, repo, ctx.Args().First(), change)
					if err != nil {
						return err
					}
					fmt.Printf("%s: timeout %dms, memory %dMB, stack %dMB, active %t\n", cfg.Language, cfg.TimeoutMs, cfg.MemoryLimitMB, cfg.StackLimitMB, cfg.Active)
					return nil
				})
			},
		},
		{
			Name:      "enable",
			Usage:     "accept submissions for a language again",
			ArgsUsage: "<language>",
			Action: func(ctx *cli.Context) error {
				return withLanguageRepo(func(c context.Context, repo secondary.LanguageConfigRepository) error {
					return setActive(c, repo, ctx.Args().First(), true)
				})
			},
		},
		{
			Name:      "disable",
			Usage:     "reject submissions for a language",
			ArgsUsage: "<language>",
			Action: func(ctx *cli.Context) error {
				return withLanguageRepo(func(c context.Context, repo secondary.LanguageConfigRepository) error {
					return setActive(c, repo, ctx.Args().First(), false)
				})
			},
		},
	},
}

func intFlag(ctx *cli.Context, name string) *int {
	if !ctx.IsSet(name) {
		return nil
	}
	v := ctx.Int(name)
	return &v
}

func withLanguageRepo(fn func(context.Context, secondary.LanguageConfigRepository) error) error {
	pgCfg := config.NewPostgresConfig()
	if !pgCfg.Enabled() {
		return cli.NewExitError("DATABASE_URL is not set", 2)
	}
	ctx := context.Background()
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	db, err := languageconfig.Connect(dialCtx, pgCfg.Url)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := languageconfig.NewLanguageConfigRepository(db, logger2.Logger)
	if err := repo.EnsureTableExists(ctx); err != nil {
		return err
	}
	return fn(ctx, repo)
}

func lookupLanguage(language string) (toolchain.Spec, error) {
	if language == "" {
		return toolchain.Spec{}, cli.NewExitError("language argument is required", 2)
	}
	spec, ok := toolchain.DefaultRegistry().Lookup(language)
	if !ok {
		return toolchain.Spec{}, cli.NewExitError("unsupported language: "+language, 2)
	}
	return spec, nil
}

func listOverrides(ctx context.Context, repo secondary.LanguageConfigRepository, out io.Writer) error {
	configs, err := repo.GetAllLanguageConfigs(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LANGUAGE\tTIMEOUT_MS\tMEMORY_MB\tSTACK_MB\tACTIVE\tUPDATED")
	for _, cfg := range configs {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%t\t%s\n", cfg.Language, cfg.TimeoutMs, cfg.MemoryLimitMB, cfg.StackLimitMB, cfg.Active, cfg.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

// setOverride merges change into the stored row; a new row starts active
func setOverride(ctx context.Context, repo secondary.LanguageConfigRepository, language string, change limitChange) (*domain.LanguageConfig, error) {
	spec, err := lookupLanguage(language)
	if err != nil {
		return nil, err
	}
	cfg, err := repo.GetLanguageConfig(ctx, language)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = &domain.LanguageConfig{Language: language, Description: spec.Description, Active: true}
	}
	if change.description != nil {
		cfg.Description = *change.description
	}
	if change.timeoutMs != nil {
		cfg.TimeoutMs = *change.timeoutMs
	}
	if change.memoryMB != nil {
		cfg.MemoryLimitMB = *change.memoryMB
	}
	if change.stackMB != nil {
		cfg.StackLimitMB = *change.stackMB
	}
	if err := repo.SaveLanguageConfig(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setActive(ctx context.Context, repo secondary.LanguageConfigRepository, language string, active bool) error {
	if _, err := lookupLanguage(language); err != nil {
		return err
	}
	if active {
		return repo.ActivateLanguage(ctx, language)
	}
	return repo.DeactivateLanguage(ctx, language)
}
