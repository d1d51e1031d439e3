package logic

import "fmt"

// TypeMismatchError reports an illegal substitution: binding a variable
// (or declaring a type/entity) in a way the hierarchy forbids. It marks
// a malformed rule or a caller bug and is never retried.
type TypeMismatchError struct {
	Rule string // offending rule, when known
	Var  string // offending variable, when known
	Want string
	Got  string
}

func (e *TypeMismatchError) Error() string {
	where := ""
	if e.Rule != "" {
		where = " in rule " + e.Rule
	}
	if e.Var != "" {
		where += " for " + e.Var
	}
	return fmt.Sprintf("type mismatch%s: want %s, got %s", where, e.Want, e.Got)
}
