package memory

import "errors"

var errModifiedIdentity = errors.New("modifier returned a different subscriber")
