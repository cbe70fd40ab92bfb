package tools

import (
	"context"
	"fmt"

	"github.com/andresclaroavocado/project-launcher-backend/internal/provider"
)

// CompletionGateway is the slice of the provider gateway the handlers need.
type CompletionGateway interface {
	Complete(ctx context.Context, prompt string, opts provider.Options) (*provider.Completion, error)
}

// ActionHandlers is the closed set of operations behind the action catalog.
// The dispatcher invokes exactly one of these per validated call.
type ActionHandlers interface {
	CreateStructure(ctx context.Context, projectName, framework, backend, database string) (map[string]interface{}, error)
	GenerateCode(ctx context.Context, fileType, content, framework string) (map[string]interface{}, error)
	CreateDocumentation(ctx context.Context, docType, projectInfo string) (map[string]interface{}, error)
	ExecuteGit(ctx context.Context, operation, message string) (map[string]interface{}, error)
	InstallDependencies(ctx context.Context, packageManager string, dependencies []string) (map[string]interface{}, error)
	Deploy(ctx context.Context, platform, packageManager string, dependencies []string, projectPath string) (map[string]interface{}, error)
}

// Handlers is the production ActionHandlers implementation. Generation
// handlers call the provider gateway; operational handlers delegate to their
// executor collaborator.
type Handlers struct {
	gw        CompletionGateway
	git       GitExecutor
	installer PackageInstaller
	deployer  Deployer
	opts      provider.Options
}

// NewHandlers wires the production handler set. opts carries the default
// model, output bound and temperature applied to every generation call.
func NewHandlers(gw CompletionGateway, git GitExecutor, installer PackageInstaller, deployer Deployer, opts provider.Options) *Handlers {
	return &Handlers{
		gw:        gw,
		git:       git,
		installer: installer,
		deployer:  deployer,
		opts:      opts,
	}
}

func (h *Handlers) CreateStructure(ctx context.Context, projectName, framework, backend, database string) (map[string]interface{}, error) {
	prompt := fmt.Sprintf(`Create a complete project structure for:
Project Name: %s
Frontend Framework: %s
Backend Technology: %s
Database: %s

Provide the file structure in JSON format with:
- Directory structure
- Key files to create
- Configuration files
- Dependencies to install

Format as JSON with 'structure' and 'files' arrays.`, projectName, framework, backend, database)

	completion, err := h.gw.Complete(ctx, prompt, h.opts)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"project_name": projectName,
		"structure":    completion.Text,
		"message":      fmt.Sprintf("Project structure created for %s", projectName),
	}, nil
}

func (h *Handlers) GenerateCode(ctx context.Context, fileType, content, framework string) (map[string]interface{}, error) {
	prompt := fmt.Sprintf(`Generate %s code for %s framework.

Requirements: %s

Provide the complete code with:
- Proper imports
- Best practices
- Comments for clarity
- Error handling

Return only the code without explanations.`, fileType, framework, content)

	completion, err := h.gw.Complete(ctx, prompt, h.opts)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"file_type": fileType,
		"code":      completion.Text,
		"framework": framework,
	}, nil
}

func (h *Handlers) CreateDocumentation(ctx context.Context, docType, projectInfo string) (map[string]interface{}, error) {
	prompt := fmt.Sprintf(`Create %s documentation for the project.

Project Information: %s

Create comprehensive documentation including:
- Project overview
- Setup instructions
- Usage examples
- API documentation (if applicable)
- Deployment guide

Format as markdown.`, docType, projectInfo)

	completion, err := h.gw.Complete(ctx, prompt, h.opts)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"doc_type":      docType,
		"documentation": completion.Text,
	}, nil
}

func (h *Handlers) ExecuteGit(ctx context.Context, operation, message string) (map[string]interface{}, error) {
	command, err := h.git.Run(ctx, operation, message)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"operation": operation,
		"command":   command,
		"message":   fmt.Sprintf("Git %s executed successfully", operation),
	}, nil
}

func (h *Handlers) InstallDependencies(ctx context.Context, packageManager string, dependencies []string) (map[string]interface{}, error) {
	command, err := h.installer.Install(ctx, packageManager, dependencies)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"package_manager": packageManager,
		"dependencies":    dependencies,
		"command":         command,
		"message":         fmt.Sprintf("Dependencies installed using %s", packageManager),
	}, nil
}

func (h *Handlers) Deploy(ctx context.Context, platform, packageManager string, dependencies []string, projectPath string) (map[string]interface{}, error) {
	command, err := h.deployer.Deploy(ctx, platform, projectPath)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"platform":        platform,
		"package_manager": packageManager,
		"dependencies":    dependencies,
		"project_path":    projectPath,
		"command":         command,
		"message":         fmt.Sprintf("Project deployed to %s", platform),
	}, nil
}
