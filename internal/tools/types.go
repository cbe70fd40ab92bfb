package tools

// Name identifies one entry of the fixed action catalog. The set of values
// is closed; the dispatcher switches exhaustively over it.
type Name string

const (
	NameCreateStructure     Name = "create_project_structure"
	NameGenerateCode        Name = "generate_code"
	NameCreateDocumentation Name = "create_documentation"
	NameGitOperations       Name = "execute_git_operations"
	NameInstallDependencies Name = "install_dependencies"
	NameDeployProject       Name = "deploy_project"
)

// ParamType is the declared type of a tool parameter.
type ParamType string

const (
	TypeString ParamType = "string"
	TypeArray  ParamType = "array"
)

// Param describes one parameter of a tool's contract.
type Param struct {
	Type        ParamType `json:"type"`
	Description string    `json:"description"`
	Required    bool      `json:"required"`
}

// Definition is the registered contract of one tool.
type Definition struct {
	Name        Name             `json:"name"`
	Description string           `json:"description"`
	Params      map[string]Param `json:"parameters"`
}

// Call is a request to execute one tool. SessionID is optional; some calls
// are session-independent.
type Call struct {
	Tool      Name                   `json:"tool_name"`
	Params    map[string]interface{} `json:"parameters"`
	SessionID string                 `json:"session_id,omitempty"`
}

// ResultStatus is the outcome of a dispatched call.
type ResultStatus string

const (
	StatusSuccess ResultStatus = "success"
	StatusError   ResultStatus = "error"
)

// Result is what the dispatcher always returns, success or failure; handler
// failures are captured here instead of propagating.
type Result struct {
	Status  ResultStatus           `json:"status"`
	Tool    Name                   `json:"tool"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	Error   string                 `json:"error,omitempty"`
	Code    string                 `json:"code,omitempty"`
}
