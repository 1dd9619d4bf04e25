// internal/bootstrap/bootstrap.go
package bootstrap

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	apperrors "github.com/Corphon/RevidClone/internal/errors"
	"github.com/Corphon/RevidClone/internal/utils"
)

// 默认参数
const (
	DefaultRepoURL     = "https://github.com/revidai/revid.git"
	DefaultDestination = "revid-ai"
)

// Options 克隆参数
type Options struct {
	RepoURL      string
	Branch       string
	Destination  string
	SkipInstalls bool
}

// Report 记录一次克隆的结果，步骤失败只产生警告
type Report struct {
	Root      string   `json:"root"`
	Installed []string `json:"installed"`
	Warnings  []string `json:"warnings"`
}

// Runner 执行外部命令
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) error
	Available(name string) bool
}

// CommandError 外部命令以非零状态退出
type CommandError struct {
	Command []string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command '%s' failed: %v", strings.Join(e.Command, " "), e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExecRunner 通过 os/exec 运行命令，输出转发到 Stdout/Stderr
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Run 运行命令，失败时返回 *CommandError
func (r ExecRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	if err := cmd.Run(); err != nil {
		return &CommandError{Command: append([]string{name}, args...), Err: err}
	}
	return nil
}

// Available 判断命令是否在 PATH 中
func (ExecRunner) Available(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// Bootstrapper 克隆仓库并安装检测到的依赖
type Bootstrapper struct {
	Runner Runner
	Logger *utils.Logger
}

// New 创建 Bootstrapper，runner 为 nil 时使用 ExecRunner
func New(runner Runner, logger *utils.Logger) *Bootstrapper {
	if runner == nil {
		runner = ExecRunner{Stdout: os.Stderr, Stderr: os.Stderr}
	}
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &Bootstrapper{Runner: runner, Logger: logger}
}

// Run 克隆仓库、初始化子模块，并按需安装 Node 与 Python 依赖
func (b *Bootstrapper) Run(ctx context.Context, opts Options) (*Report, error) {
	if opts.RepoURL == "" {
		opts.RepoURL = DefaultRepoURL
	}
	if opts.Destination == "" {
		opts.Destination = DefaultDestination
	}

	root, err := b.Clone(ctx, opts.RepoURL, opts.Destination, opts.Branch)
	if err != nil {
		return nil, err
	}

	report := &Report{Root: root, Installed: []string{}, Warnings: []string{}}
	b.initSubmodules(ctx, report)
	if !opts.SkipInstalls {
		b.installNode(ctx, report)
		b.installPython(ctx, report)
	}

	b.Logger.Info("clone ready", map[string]interface{}{"root": root, "warnings": len(report.Warnings)})
	return report, nil
}

// Clone 克隆到空目录并返回绝对路径；目录非空时返回 Conflict 错误
func (b *Bootstrapper) Clone(ctx context.Context, repoURL, destination, branch string) (string, error) {
	root, err := resolvePath(destination)
	if err != nil {
		return "", apperrors.NewValidationError(fmt.Sprintf("invalid destination %q", destination), err)
	}

	entries, err := os.ReadDir(root)
	switch {
	case err == nil && len(entries) > 0:
		return "", apperrors.NewConflictError(fmt.Sprintf("destination %s is not empty", root), nil)
	case err != nil && !os.IsNotExist(err):
		return "", apperrors.NewIOError(fmt.Sprintf("inspect destination %s", root), err)
	}

	args := []string{"clone"}
	if branch != "" {
		args = append(args, "-b", branch)
	}
	args = append(args, repoURL, root)

	b.Logger.Info("cloning repository", map[string]interface{}{"repo_url": repoURL, "destination": root, "branch": branch})
	if err := b.Runner.Run(ctx, "", "git", args...); err != nil {
		return "", apperrors.NewProcessingError("clone repository", err)
	}
	return root, nil
}

func (b *Bootstrapper) initSubmodules(ctx context.Context, report *Report) {
	if !exists(filepath.Join(report.Root, ".git")) {
		return
	}
	if err := b.Runner.Run(ctx, report.Root, "git", "submodule", "update", "--init", "--recursive"); err != nil {
		b.warn(report, err.Error())
	}
}

func (b *Bootstrapper) installNode(ctx context.Context, report *Report) {
	root := report.Root
	if !exists(filepath.Join(root, "package.json")) {
		return
	}

	var tool string
	switch {
	case exists(filepath.Join(root, "pnpm-lock.yaml")) && b.Runner.Available("pnpm"):
		tool = "pnpm"
	case exists(filepath.Join(root, "yarn.lock")) && b.Runner.Available("yarn"):
		tool = "yarn"
	case b.Runner.Available("npm"):
		tool = "npm"
	default:
		b.warn(report, "no supported Node.js package manager found; skipping JS install")
		return
	}

	b.install(ctx, report, tool, "install")
}

func (b *Bootstrapper) installPython(ctx context.Context, report *Report) {
	root := report.Root

	if exists(filepath.Join(root, "poetry.lock")) || hasPoetryTable(filepath.Join(root, "pyproject.toml")) {
		if b.Runner.Available("poetry") {
			b.install(ctx, report, "poetry", "install")
			return
		}
		b.warn(report, "Poetry manifest detected but Poetry is not installed; skipping")
	}

	if exists(filepath.Join(root, "requirements.txt")) {
		pip := ""
		if b.Runner.Available("pip3") {
			pip = "pip3"
		} else if b.Runner.Available("pip") {
			pip = "pip"
		}
		if pip != "" {
			b.install(ctx, report, pip, "install", "-r", "requirements.txt")
			return
		}
	}

	if exists(filepath.Join(root, "Pipfile")) {
		if b.Runner.Available("pipenv") {
			b.install(ctx, report, "pipenv", "install")
			return
		}
		b.warn(report, "Pipfile detected but Pipenv is not installed; skipping")
	}
}

func (b *Bootstrapper) install(ctx context.Context, report *Report, tool string, args ...string) {
	b.Logger.Info("installing dependencies", map[string]interface{}{"tool": tool, "root": report.Root})
	if err := b.Runner.Run(ctx, report.Root, tool, args...); err != nil {
		b.warn(report, err.Error())
		return
	}
	report.Installed = append(report.Installed, tool)
}

func (b *Bootstrapper) warn(report *Report, message string) {
	report.Warnings = append(report.Warnings, message)
	b.Logger.Warn(message, map[string]interface{}{"root": report.Root})
}

// resolvePath expands a leading "~" and makes the path absolute.
func resolvePath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Abs(path)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func hasPoetryTable(pyproject string) bool {
	content, err := os.ReadFile(pyproject)
	if err != nil {
		return false
	}
	return bytes.Contains(content, []byte("[tool.poetry]"))
}
