// cmd/revid/commands.go
package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/Corphon/RevidClone/internal/api"
	"github.com/Corphon/RevidClone/internal/app"
	"github.com/Corphon/RevidClone/internal/bootstrap"
	"github.com/Corphon/RevidClone/internal/config"
	"github.com/Corphon/RevidClone/internal/models"
	"github.com/Corphon/RevidClone/internal/services"
	"github.com/gin-gonic/gin"
)

// cmdEnv 命令运行环境
type cmdEnv struct {
	ctx    context.Context
	cfg    *config.Config
	stdout io.Writer
	stderr io.Writer
}

type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }

func usagef(format string, args ...interface{}) error {
	return usageError{err: fmt.Errorf(format, args...)}
}

var commands = map[string]func(*cmdEnv, []string) error{
	"init":       runInit,
	"script":     runScript,
	"storyboard": runStoryboard,
	"render":     runRender,
	"list":       runList,
	"export":     runExport,
	"serve":      runServe,
	"bootstrap":  runBootstrap,
}

// parseInterspersed parses flags that may appear before or after
// positional arguments and returns the positionals in order.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, usageError{err: err}
		}
		rest := fs.Args()
		if len(rest) == 0 {
			return positional, nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

func newFlagSet(name string, env *cmdEnv) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(env.stderr)
	return fs
}

func exactArgs(name string, positional []string, want ...string) error {
	if len(positional) != len(want) {
		return usagef("%s expects %d argument(s): %v", name, len(want), want)
	}
	return nil
}

func newApp(env *cmdEnv) (*app.App, error) {
	return app.New(env.cfg)
}

func runInit(env *cmdEnv, args []string) error {
	fs := newFlagSet("init", env)
	brief := fs.String("brief", "", "project brief (required)")
	tone := fs.String("tone", models.DefaultTone, "narrative tone")
	audience := fs.String("audience", models.DefaultTargetAudience, "target audience")
	duration := fs.Int("duration", models.DefaultDurationMinutes, "duration in minutes")

	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if err := exactArgs("init", positional, "title"); err != nil {
		return err
	}
	if *brief == "" {
		return usagef("--brief is required")
	}

	a, err := newApp(env)
	if err != nil {
		return err
	}
	project, err := a.Projects.CreateProject(models.ProjectParams{
		Title:           positional[0],
		Brief:           *brief,
		Tone:            *tone,
		TargetAudience:  *audience,
		DurationMinutes: *duration,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(env.stdout, project.ProjectID)
	return nil
}

func runScript(env *cmdEnv, args []string) error {
	return runStage(env, "script", args, func(a *app.App, p models.Project) (models.Project, error) {
		return a.Projects.GenerateScript(p)
	})
}

func runStoryboard(env *cmdEnv, args []string) error {
	return runStage(env, "storyboard", args, func(a *app.App, p models.Project) (models.Project, error) {
		return a.Projects.DesignStoryboard(p)
	})
}

// runStage loads a project, applies one stage and prints the project JSON.
func runStage(env *cmdEnv, name string, args []string, stage func(*app.App, models.Project) (models.Project, error)) error {
	positional, err := parseInterspersed(newFlagSet(name, env), args)
	if err != nil {
		return err
	}
	if err := exactArgs(name, positional, "project_id"); err != nil {
		return err
	}

	a, err := newApp(env)
	if err != nil {
		return err
	}
	project, err := a.Projects.LoadProject(positional[0])
	if err != nil {
		return err
	}
	if project, err = stage(a, project); err != nil {
		return err
	}
	return printProject(env.stdout, project)
}

func printProject(w io.Writer, project models.Project) error {
	data, err := project.ToJSON()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func runRender(env *cmdEnv, args []string) error {
	fs := newFlagSet("render", env)
	out := fs.String("out", "", "preview output path (default <home>/<id>_preview.json)")

	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if err := exactArgs("render", positional, "project_id"); err != nil {
		return err
	}

	a, err := newApp(env)
	if err != nil {
		return err
	}
	project, err := a.Projects.LoadProject(positional[0])
	if err != nil {
		return err
	}
	path, err := a.Projects.RenderPreview(project, *out)
	if err != nil {
		return err
	}
	fmt.Fprintln(env.stdout, path)
	return nil
}

func runList(env *cmdEnv, args []string) error {
	positional, err := parseInterspersed(newFlagSet("list", env), args)
	if err != nil {
		return err
	}
	if err := exactArgs("list", positional); err != nil {
		return err
	}

	a, err := newApp(env)
	if err != nil {
		return err
	}
	for project, err := range a.Projects.ListProjects() {
		if err != nil {
			return err
		}
		fmt.Fprintf(env.stdout, "%s\t%s\t%s\n", project.ProjectID, project.Title, project.CreatedAt)
	}
	return nil
}

func runExport(env *cmdEnv, args []string) error {
	fs := newFlagSet("export", env)
	format := fs.String("format", services.FormatMarkdown, "export format: markdown, txt, html or json")
	out := fs.String("out", "", "output path (default <home>/exports/<id>_storyboard_<timestamp>.<ext>)")

	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if err := exactArgs("export", positional, "project_id"); err != nil {
		return err
	}

	a, err := newApp(env)
	if err != nil {
		return err
	}
	project, err := a.Projects.LoadProject(positional[0])
	if err != nil {
		return err
	}
	result, err := a.Exports.ExportProject(project, *format, *out)
	if err != nil {
		return err
	}
	fmt.Fprintln(env.stdout, result.FilePath)
	return nil
}

func runServe(env *cmdEnv, args []string) error {
	fs := newFlagSet("serve", env)
	port := fs.String("port", env.cfg.Port, "HTTP port")
	if _, err := parseInterspersed(fs, args); err != nil {
		return err
	}
	env.cfg.Port = *port
	if err := env.cfg.Validate(); err != nil {
		return usageError{err: err}
	}

	if !env.cfg.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	a, err := app.InitServices(env.cfg)
	if err != nil {
		return err
	}
	router, err := api.SetupRouter()
	if err != nil {
		return err
	}
	return a.Serve(env.ctx, router)
}

func runBootstrap(env *cmdEnv, args []string) error {
	fs := newFlagSet("bootstrap", env)
	opts := bootstrap.Options{}
	fs.StringVar(&opts.RepoURL, "repo-url", bootstrap.DefaultRepoURL, "git URL to clone")
	fs.StringVar(&opts.Branch, "branch", "", "branch or tag to check out")
	fs.StringVar(&opts.Destination, "destination", bootstrap.DefaultDestination, "clone destination")
	fs.BoolVar(&opts.SkipInstalls, "skip-installs", false, "skip dependency installation")

	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(positional) > 0 {
		return usagef("unexpected arguments %v", positional)
	}

	report, err := bootstrap.New(nil, nil).Run(env.ctx, opts)
	if err != nil {
		return err
	}
	for _, warning := range report.Warnings {
		fmt.Fprintf(env.stderr, "warning: %s\n", warning)
	}
	fmt.Fprintln(env.stdout, report.Root)
	return nil
}
