package main

import (
	"errors"

	"github.com/matsen/semikb/internal/blob"
	"github.com/matsen/semikb/internal/catalog"
	"github.com/matsen/semikb/internal/kg"
	"github.com/matsen/semikb/internal/linker"
	"github.com/matsen/semikb/internal/pipeline"
	"github.com/matsen/semikb/internal/storage"
)

// Exit codes
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (missing config, invalid category, kind or store)
	ExitDataError   = 3 // Data error (schema drift, corrupt bundle, invalid graph)
	ExitNotFound    = 4 // Raw archive, bundle, node or key not found
)

// exitCodeFor maps an error kind to an exit code.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, catalog.ErrInvalidCategory),
		errors.Is(err, blob.ErrInvalidKind):
		return ExitConfigError
	case errors.Is(err, linker.ErrSchema),
		errors.Is(err, storage.ErrCorrupt),
		errors.Is(err, kg.ErrInvalid):
		return ExitDataError
	case pipeline.IsNotFound(err),
		errors.Is(err, kg.ErrUnknownKey),
		errors.Is(err, kg.ErrOutOfRange):
		return ExitNotFound
	}
	return ExitError
}
