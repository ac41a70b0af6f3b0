// Package schema describes the structural contracts of sealed tasks.
//
// A Signature names the fields a task reads from shared state and the fields
// it writes back. Signatures are parsed from a compact text form:
//
//	sig, err := schema.Parse("question, context? -> answer: text")
//
// Inputs sit left of the arrow and outputs right of it. A field may carry a
// kind after a colon (null, bool, number, text, list, map, any) and may be
// marked optional with a trailing question mark. Malformed text fails with a
// *FormatError.
//
// The package also defines the findings produced when contracts are checked,
// statically by the flow validator or at run time: ValidationIssue and
// ValidationResult.
package schema
