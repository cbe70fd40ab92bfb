package tools

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/andresclaroavocado/project-launcher-backend/internal/models"
	"github.com/andresclaroavocado/project-launcher-backend/internal/provider"
)

// Dispatcher validates calls against the registry and routes them to the
// matching handler. It always returns a Result; handler failures and panics
// become error results, never crashes.
type Dispatcher struct {
	registry *Registry
	handlers ActionHandlers
	tracer   trace.Tracer
}

func NewDispatcher(registry *Registry, handlers ActionHandlers) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		handlers: handlers,
		tracer:   otel.Tracer("tool-dispatcher"),
	}
}

// Registry exposes the catalog for the HTTP listing endpoints.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Validate runs the three validation steps without invoking any handler.
func (d *Dispatcher) Validate(call Call) *ValidationError {
	def, ok := d.registry.Lookup(call.Tool)
	if !ok {
		return &ValidationError{Reason: "unknown tool"}
	}
	return validateParams(def, call.Params)
}

// Dispatch runs the three validation steps in order, then invokes the
// handler. Validation failures reject the call before any side effect.
func (d *Dispatcher) Dispatch(ctx context.Context, call Call) (result Result) {
	ctx, span := d.tracer.Start(ctx, "dispatch",
		trace.WithAttributes(attribute.String("tool", string(call.Tool))))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			log.Printf(`{"level":"error","component":"dispatcher","tool":%q,"panic":"%v"}`, call.Tool, r)
			err := fmt.Errorf("handler panic: %v", r)
			span.RecordError(err)
			result = d.errorResult(call.Tool, err)
		}
		span.SetAttributes(attribute.String("status", string(result.Status)))
	}()

	def, ok := d.registry.Lookup(call.Tool)
	if !ok {
		return d.errorResult(call.Tool, &ValidationError{Reason: "unknown tool"})
	}

	if verr := validateParams(def, call.Params); verr != nil {
		return d.errorResult(call.Tool, verr)
	}

	payload, err := d.invoke(ctx, call)
	if err != nil {
		span.RecordError(err)
		return d.errorResult(call.Tool, &HandlerError{Tool: call.Tool, Err: err})
	}

	return Result{
		Status:  StatusSuccess,
		Tool:    call.Tool,
		Payload: payload,
	}
}

// validateParams enforces required presence, then declared types. Parameter
// names are walked in sorted order so the first reported failure is stable.
func validateParams(def Definition, params map[string]interface{}) *ValidationError {
	names := make([]string, 0, len(def.Params))
	for name := range def.Params {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if !def.Params[name].Required {
			continue
		}
		if _, present := params[name]; !present {
			return &ValidationError{Reason: "missing parameter: " + name}
		}
	}

	for _, name := range names {
		value, present := params[name]
		if !present {
			continue
		}
		if !matchesType(def.Params[name].Type, value) {
			return &ValidationError{Reason: "type mismatch: " + name}
		}
	}

	return nil
}

func matchesType(t ParamType, value interface{}) bool {
	switch t {
	case TypeString:
		_, ok := value.(string)
		return ok
	case TypeArray:
		switch v := value.(type) {
		case []string:
			return true
		case []interface{}:
			for _, item := range v {
				if _, ok := item.(string); !ok {
					return false
				}
			}
			return true
		default:
			return false
		}
	default:
		return false
	}
}

// invoke routes a validated call to its handler. The switch is exhaustive
// over the catalog; an unlisted name cannot reach here because Lookup has
// already vetted it against the same fixed set.
func (d *Dispatcher) invoke(ctx context.Context, call Call) (map[string]interface{}, error) {
	switch call.Tool {
	case NameCreateStructure:
		return d.handlers.CreateStructure(ctx,
			stringParam(call.Params, "project_name", "my-project"),
			stringParam(call.Params, "framework", "react"),
			stringParam(call.Params, "backend", "nodejs"),
			stringParam(call.Params, "database", "postgresql"))
	case NameGenerateCode:
		return d.handlers.GenerateCode(ctx,
			stringParam(call.Params, "file_type", ""),
			stringParam(call.Params, "content", ""),
			stringParam(call.Params, "framework", "react"))
	case NameCreateDocumentation:
		return d.handlers.CreateDocumentation(ctx,
			stringParam(call.Params, "doc_type", ""),
			stringParam(call.Params, "project_info", ""))
	case NameGitOperations:
		return d.handlers.ExecuteGit(ctx,
			stringParam(call.Params, "operation", ""),
			stringParam(call.Params, "message", ""))
	case NameInstallDependencies:
		return d.handlers.InstallDependencies(ctx,
			stringParam(call.Params, "package_manager", ""),
			stringSliceParam(call.Params, "dependencies"))
	case NameDeployProject:
		return d.handlers.Deploy(ctx,
			stringParam(call.Params, "platform", ""),
			stringParam(call.Params, "package_manager", ""),
			stringSliceParam(call.Params, "dependencies"),
			stringParam(call.Params, "project_path", ""))
	default:
		return nil, fmt.Errorf("tool %s has no handler", call.Tool)
	}
}

func (d *Dispatcher) errorResult(tool Name, err error) Result {
	return Result{
		Status: StatusError,
		Tool:   tool,
		Error:  err.Error(),
		Code:   errorCode(err),
	}
}

// errorCode maps the error taxonomy onto response codes.
func errorCode(err error) string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return models.ErrCodeValidationFailed
	}
	var perr *provider.Error
	if errors.As(err, &perr) {
		return models.ErrCodeProviderFailed
	}
	return models.ErrCodeHandlerFailed
}

func stringParam(params map[string]interface{}, name, fallback string) string {
	if v, ok := params[name].(string); ok && v != "" {
		return v
	}
	return fallback
}

func stringSliceParam(params map[string]interface{}, name string) []string {
	switch v := params[name].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
