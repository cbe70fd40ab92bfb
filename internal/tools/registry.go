package tools

import "sort"

// Registry is an immutable tool catalog built once at startup and handed to
// the dispatcher as a constructor argument.
type Registry struct {
	defs map[Name]Definition
}

// NewRegistry builds a registry from the given definitions. Tests pass a
// reduced catalog; production code uses DefaultRegistry.
func NewRegistry(defs ...Definition) *Registry {
	m := make(map[Name]Definition, len(defs))
	for _, d := range defs {
		m[d.Name] = d
	}
	return &Registry{defs: m}
}

// Lookup returns the definition for name, if registered.
func (r *Registry) Lookup(name Name) (Definition, bool) {
	d, ok := r.defs[name]
	return d, ok
}

// Size returns the number of registered tools.
func (r *Registry) Size() int {
	return len(r.defs)
}

// List returns all definitions sorted by tool name.
func (r *Registry) List() []Definition {
	out := make([]Definition, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// DefaultRegistry returns the full production catalog.
func DefaultRegistry() *Registry {
	return NewRegistry(
		Definition{
			Name:        NameCreateStructure,
			Description: "Create a complete project file structure",
			Params: map[string]Param{
				"project_name": {Type: TypeString, Description: "Name of the project", Required: true},
				"framework":    {Type: TypeString, Description: "Frontend framework (react, vue, angular)"},
				"backend":      {Type: TypeString, Description: "Backend technology (nodejs, python, java)"},
				"database":     {Type: TypeString, Description: "Database type (postgresql, mysql, mongodb)"},
			},
		},
		Definition{
			Name:        NameGenerateCode,
			Description: "Generate code files for the project",
			Params: map[string]Param{
				"file_type": {Type: TypeString, Description: "Type of file to generate", Required: true},
				"content":   {Type: TypeString, Description: "Code content or description", Required: true},
				"framework": {Type: TypeString, Description: "Framework for the code"},
			},
		},
		Definition{
			Name:        NameCreateDocumentation,
			Description: "Create project documentation",
			Params: map[string]Param{
				"doc_type":     {Type: TypeString, Description: "Type of documentation (readme, api, setup)", Required: true},
				"project_info": {Type: TypeString, Description: "Project information and requirements", Required: true},
			},
		},
		Definition{
			Name:        NameGitOperations,
			Description: "Execute Git operations for the project",
			Params: map[string]Param{
				"operation": {Type: TypeString, Description: "Git operation (init, add, commit, push)", Required: true},
				"message":   {Type: TypeString, Description: "Commit message or operation details"},
			},
		},
		Definition{
			Name:        NameInstallDependencies,
			Description: "Install project dependencies",
			Params: map[string]Param{
				"package_manager": {Type: TypeString, Description: "Package manager (npm, pip, maven)", Required: true},
				"dependencies":    {Type: TypeArray, Description: "List of dependencies", Required: true},
			},
		},
		Definition{
			Name:        NameDeployProject,
			Description: "Deploy the project to a platform",
			Params: map[string]Param{
				"platform":        {Type: TypeString, Description: "Deployment platform (vercel, railway, heroku)", Required: true},
				"package_manager": {Type: TypeString, Description: "Package manager used by the project", Required: true},
				"dependencies":    {Type: TypeArray, Description: "List of dependencies", Required: true},
				"project_path":    {Type: TypeString, Description: "Path to the project", Required: true},
			},
		},
	)
}
