package typesystem

import "fmt"

// ConstraintError reports a type argument that fails the declared bound
// on a type variable.
type ConstraintError struct {
	Var TVar
	Arg Type
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%s does not satisfy the constraint %s on %s", e.Arg, e.Var.Constraint, e.Var.Name)
}

func NewConstraintError(v TVar, arg Type) *ConstraintError {
	return &ConstraintError{Var: v, Arg: arg}
}
