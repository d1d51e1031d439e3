package logic

import (
	"fmt"
	"strings"
)

// ParseAtom splits a textual atom like "in(key, box)" into its
// predicate name and argument names. Whether an argument is a variable
// or a constant is decided by the caller (the loader knows a rule's
// declared parameters; command handling treats everything as a
// constant). A bare name with no parentheses is a zero-argument atom.
func ParseAtom(s string) (pred string, args []string, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil, fmt.Errorf("empty atom")
	}
	open := strings.IndexByte(s, '(')
	if open < 0 {
		if strings.ContainsAny(s, ") ,") {
			return "", nil, fmt.Errorf("malformed atom %q", s)
		}
		return s, nil, nil
	}
	if !strings.HasSuffix(s, ")") {
		return "", nil, fmt.Errorf("malformed atom %q: missing closing parenthesis", s)
	}
	pred = strings.TrimSpace(s[:open])
	if pred == "" {
		return "", nil, fmt.Errorf("malformed atom %q: missing predicate", s)
	}
	inner := strings.TrimSpace(s[open+1 : len(s)-1])
	if inner == "" {
		return pred, nil, nil
	}
	for _, part := range strings.Split(inner, ",") {
		name := strings.TrimSpace(part)
		if name == "" || strings.ContainsAny(name, "() ") {
			return "", nil, fmt.Errorf("malformed atom %q: bad argument %q", s, part)
		}
		args = append(args, name)
	}
	return pred, args, nil
}
