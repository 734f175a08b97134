//go:build !swagger

package httpapi

import "github.com/go-chi/chi/v5"

// MountSwagger does nothing unless built with -tags=swagger; /swagger/* then 404s.
func MountSwagger(r chi.Router) {}
