// Package bytecode provides the immutable representation of a compiled
// pyreg program and the builder the compiler uses to assemble it.
//
// A program is a flat instruction stream laid out as:
//
//	DEFINE_FUNCTION ... (one per function)
//	main code
//	HALT
//	function bodies
//
// Instructions address registers (0-255) and refer to two deduplicated
// pools by index: integer constants and variable names. Each variable name
// is paired with the interned numeric id the virtual machine uses as a
// storage key.
//
// # Immutability
//
// [Code] is immutable after construction and safe for concurrent use by any
// number of virtual machines:
//
//   - All fields are unexported
//   - [NewCode] copies input slices
//   - Accessors are index based and return values, never internal slices
//
// Mutable assembly happens in [Builder], whose Build method produces a
// Code and always terminates the main stream with HALT.
package bytecode
