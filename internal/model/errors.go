package model

import "errors"

// ErrAttemptNotActive is returned by collaborators when the server no longer
// considers the attempt in progress (finished, expired or cancelled there).
var ErrAttemptNotActive = errors.New("attempt is not active on the server")
