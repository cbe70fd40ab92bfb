package pipeline

import (
	"context"
	"fmt"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/andresclaroavocado/project-launcher-backend/internal/conversation"
	"github.com/andresclaroavocado/project-launcher-backend/internal/tools"
)

// Step names in reporting order. A run's outcome lists an entry per started
// step; steps after the first failure are never started.
const (
	StepStructure     = "structure"
	StepCode          = "code"
	StepDocumentation = "documentation"
	StepGitInit       = "git-init"
	StepInstall       = "dependency-install"
	StepDeploy        = "deploy"
)

// MaxFileRequests bounds the code-generation steps of one run. Together with
// the structure and documentation steps it caps the number of sequential
// provider calls a single pipeline run can make, which is what the server's
// write timeout is derived from.
const MaxFileRequests = 8

// Dispatcher is the slice of the tool dispatcher the pipeline drives.
type Dispatcher interface {
	Dispatch(ctx context.Context, call tools.Call) tools.Result
}

// FileRequest names one code file the caller wants generated.
type FileRequest struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// StepResult pairs a pipeline step with the tool result it produced.
type StepResult struct {
	Step   string       `json:"step"`
	Result tools.Result `json:"result"`
}

// Outcome is the aggregated result of one pipeline run: the prefix of
// completed steps plus, on failure, the failing one.
type Outcome struct {
	ProjectName string       `json:"project_name,omitempty"`
	Steps       []StepResult `json:"steps"`
	Success     bool         `json:"success"`
	FailedStep  string       `json:"failed_step,omitempty"`
	Error       string       `json:"error,omitempty"`
}

type step struct {
	name string
	call tools.Call
}

// Runner composes tool calls into the fixed generation and deployment
// pipelines. Steps run sequentially and the run halts on the first error
// result.
type Runner struct {
	dispatcher Dispatcher
	tracker    *Tracker
	tracer     trace.Tracer
}

func NewRunner(dispatcher Dispatcher, tracker *Tracker) *Runner {
	return &Runner{
		dispatcher: dispatcher,
		tracker:    tracker,
		tracer:     otel.Tracer("pipeline-runner"),
	}
}

// CreateProject runs structure, one code step per requested file,
// documentation and git-init against a frozen spec snapshot. sessionID tags
// progress events and may be empty for session-independent runs.
func (r *Runner) CreateProject(ctx context.Context, sessionID string, spec conversation.ProjectSpec, files []FileRequest) *Outcome {
	ctx, span := r.tracer.Start(ctx, "create_project",
		trace.WithAttributes(attribute.String("project_name", spec.Name)))
	defer span.End()

	steps := []step{
		{
			name: StepStructure,
			call: tools.Call{
				Tool:      tools.NameCreateStructure,
				SessionID: sessionID,
				Params: map[string]interface{}{
					"project_name": spec.Name,
					"framework":    spec.Framework,
					"backend":      spec.Backend,
					"database":     spec.Database,
				},
			},
		},
	}

	for _, file := range files {
		steps = append(steps, step{
			name: StepCode,
			call: tools.Call{
				Tool:      tools.NameGenerateCode,
				SessionID: sessionID,
				Params: map[string]interface{}{
					"file_type": file.Type,
					"content":   file.Content,
					"framework": spec.Framework,
				},
			},
		})
	}

	steps = append(steps,
		step{
			name: StepDocumentation,
			call: tools.Call{
				Tool:      tools.NameCreateDocumentation,
				SessionID: sessionID,
				Params: map[string]interface{}{
					"doc_type":     "readme",
					"project_info": describeProject(spec),
				},
			},
		},
		step{
			name: StepGitInit,
			call: tools.Call{
				Tool:      tools.NameGitOperations,
				SessionID: sessionID,
				Params: map[string]interface{}{
					"operation": "init",
					"message":   fmt.Sprintf("Initial commit for %s", spec.Name),
				},
			},
		},
	)

	outcome := r.run(ctx, sessionID, steps)
	outcome.ProjectName = spec.Name
	span.SetAttributes(attribute.Bool("success", outcome.Success))
	return outcome
}

// DeployProject runs dependency installation followed by deployment.
func (r *Runner) DeployProject(ctx context.Context, platform, packageManager string, dependencies []string, projectPath string) *Outcome {
	ctx, span := r.tracer.Start(ctx, "deploy_project",
		trace.WithAttributes(attribute.String("platform", platform)))
	defer span.End()

	steps := []step{
		{
			name: StepInstall,
			call: tools.Call{
				Tool: tools.NameInstallDependencies,
				Params: map[string]interface{}{
					"package_manager": packageManager,
					"dependencies":    dependencies,
				},
			},
		},
		{
			name: StepDeploy,
			call: tools.Call{
				Tool: tools.NameDeployProject,
				Params: map[string]interface{}{
					"platform":        platform,
					"package_manager": packageManager,
					"dependencies":    dependencies,
					"project_path":    projectPath,
				},
			},
		},
	}

	outcome := r.run(ctx, "", steps)
	span.SetAttributes(attribute.Bool("success", outcome.Success))
	return outcome
}

// run executes steps in order, fail-fast. An in-flight step is allowed to
// finish on cancellation, but no further step starts.
func (r *Runner) run(ctx context.Context, sessionID string, steps []step) *Outcome {
	outcome := &Outcome{Success: true}

	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			outcome.Success = false
			outcome.FailedStep = s.name
			outcome.Error = fmt.Sprintf("pipeline aborted: %v", err)
			break
		}

		result := r.dispatcher.Dispatch(ctx, s.call)
		outcome.Steps = append(outcome.Steps, StepResult{Step: s.name, Result: result})
		r.publish(sessionID, s.name, result, false)

		if result.Status == tools.StatusError {
			outcome.Success = false
			outcome.FailedStep = s.name
			outcome.Error = result.Error
			log.Printf(`{"level":"error","component":"pipeline","step":%q,"tool":%q,"error":%q}`, s.name, s.call.Tool, result.Error)
			break
		}
	}

	r.publishDone(sessionID, outcome)
	return outcome
}

func (r *Runner) publish(sessionID, stepName string, result tools.Result, done bool) {
	if r.tracker == nil || sessionID == "" {
		return
	}
	r.tracker.Publish(sessionID, Event{
		Step:   stepName,
		Status: result.Status,
		Error:  result.Error,
		Done:   done,
	})
}

func (r *Runner) publishDone(sessionID string, outcome *Outcome) {
	if r.tracker == nil || sessionID == "" {
		return
	}
	status := tools.StatusSuccess
	if !outcome.Success {
		status = tools.StatusError
	}
	r.tracker.Publish(sessionID, Event{
		Step:   outcome.FailedStep,
		Status: status,
		Error:  outcome.Error,
		Done:   true,
	})
}

func describeProject(spec conversation.ProjectSpec) string {
	return fmt.Sprintf("Project: %s, Purpose: %s, Framework: %s, Backend: %s, Database: %s",
		spec.Name, spec.Purpose, spec.Framework, spec.Backend, spec.Database)
}
