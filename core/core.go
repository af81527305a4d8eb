package core

// Destroyable is anything holding resources that are released explicitly
type Destroyable interface {
	// Destroy releases internal members
	Destroy()
}

// ShaderType represents the type of shader thats loaded
type ShaderType int

// Identifies shader objects with their types
const (
	VertexShaderType ShaderType = iota
	FragmentShaderType
	UnknownShaderType
)

// String implements fmt.Stringer
func (s ShaderType) String() string {
	switch s {
	case VertexShaderType:
		return "vert"
	case FragmentShaderType:
		return "frag"
	default:
		return "unknown"
	}
}

// ParseShaderType maps a file suffix to a ShaderType
func ParseShaderType(suffix string) ShaderType {
	switch suffix {
	case "vert":
		return VertexShaderType
	case "frag":
		return FragmentShaderType
	default:
		return UnknownShaderType
	}
}
