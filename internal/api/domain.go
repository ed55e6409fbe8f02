package api

import (
	"github.com/JaimeStill/licita/internal/files"
	"github.com/JaimeStill/licita/internal/records"
	"github.com/JaimeStill/licita/internal/registry"
)

// Domain holds the domain systems served by the API.
type Domain struct {
	Records  records.System
	Registry registry.System
	Files    files.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	return &Domain{
		Records: records.New(
			runtime.Database.Connection(),
			runtime.Storage,
			runtime.Logger,
			runtime.Pagination,
		),
		Registry: registry.New(
			runtime.Database.Connection(),
			runtime.Logger,
			runtime.Pagination,
		),
		Files: files.New(runtime.Storage, runtime.Logger),
	}
}
