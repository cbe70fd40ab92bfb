package tools

import (
	"context"
	"fmt"
	"strings"
)

// Executor collaborators perform the deterministic, side-effecting tail of a
// handler: version control, dependency installation, deployment. Each is an
// interface so tests and restricted environments can substitute stubs.

// GitExecutor runs a version-control operation and reports the command it
// issued.
type GitExecutor interface {
	Run(ctx context.Context, operation, message string) (string, error)
}

// PackageInstaller installs dependencies with the given package manager.
type PackageInstaller interface {
	Install(ctx context.Context, packageManager string, dependencies []string) (string, error)
}

// Deployer pushes a project to a hosting platform.
type Deployer interface {
	Deploy(ctx context.Context, platform, projectPath string) (string, error)
}

// CommandGit formats git command lines for the known operations.
type CommandGit struct{}

func (CommandGit) Run(ctx context.Context, operation, message string) (string, error) {
	switch operation {
	case "init":
		return "git init", nil
	case "add":
		return "git add .", nil
	case "commit":
		return fmt.Sprintf("git commit -m %q", message), nil
	case "push":
		return "git push origin main", nil
	default:
		return "", fmt.Errorf("unsupported git operation: %s", operation)
	}
}

// CommandInstaller formats install command lines per package manager.
type CommandInstaller struct{}

func (CommandInstaller) Install(ctx context.Context, packageManager string, dependencies []string) (string, error) {
	switch packageManager {
	case "npm":
		return "npm install " + strings.Join(dependencies, " "), nil
	case "pip":
		return "pip install " + strings.Join(dependencies, " "), nil
	case "maven":
		return "mvn install", nil
	default:
		return fmt.Sprintf("%s install %s", packageManager, strings.Join(dependencies, " ")), nil
	}
}

// CommandDeployer formats deployment command lines for the known platforms.
type CommandDeployer struct{}

func (CommandDeployer) Deploy(ctx context.Context, platform, projectPath string) (string, error) {
	switch platform {
	case "vercel":
		return "vercel --prod", nil
	case "railway":
		return "railway up", nil
	case "heroku":
		return "git push heroku main", nil
	case "netlify":
		return "netlify deploy --prod", nil
	default:
		return "", fmt.Errorf("unsupported deployment platform: %s", platform)
	}
}
