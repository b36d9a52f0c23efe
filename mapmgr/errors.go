package mapmgr

import "errors"

// ErrNotInitialized is returned for map traffic that arrives before the
// terrain and unit catalogue are known.
var ErrNotInitialized = errors.New("map manager not initialized")
