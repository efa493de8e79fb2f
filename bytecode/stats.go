package bytecode

// Stats contains statistics about compiled bytecode.
// This is useful for auditing programs before execution.
type Stats struct {
	// InstructionCount is the total number of bytecode instructions.
	InstructionCount int `json:"instruction_count"`

	// ConstantCount is the number of constants in the constant pool.
	ConstantCount int `json:"constant_count"`

	// VarNameCount is the number of pooled variable and function names.
	VarNameCount int `json:"var_name_count"`

	// FunctionCount is the number of functions defined in the program.
	FunctionCount int `json:"function_count"`

	// MaxRegisterUsed is the highest register written by the main code.
	MaxRegisterUsed int `json:"max_register_used"`

	// SourceBytes is the size of the original source code in bytes.
	SourceBytes int `json:"source_bytes"`
}

// Stats returns statistics about the code.
func (c *Code) Stats() Stats {
	return Stats{
		InstructionCount: len(c.instructions),
		ConstantCount:    len(c.constants),
		VarNameCount:     len(c.varNames),
		FunctionCount:    c.FunctionCount(),
		MaxRegisterUsed:  int(c.maxRegisterUsed),
		SourceBytes:      len(c.source),
	}
}
