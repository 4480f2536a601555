package hook

import "errors"

// ErrInvalidValue is raised when Set is given a value that is neither a
// Func, a Reference, nor a structured-cloneable literal (§7).
var ErrInvalidValue = errors.New("hook: invalid value")
