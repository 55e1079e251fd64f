package gallery

import "errors"

// ErrInvariant marks an internal ordering violation in the gallery. It is raised as a
// panic: it only happens if mutations escape serialization.
var ErrInvariant = errors.New("gallery invariant violated")
