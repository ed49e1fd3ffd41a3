package router

import "reflect"

// Registry is a type-keyed service locator: handlers pull shared
// collaborators (game manager, matchmaking, persistence, ...) out of it by
// type instead of through package-level globals, per §9's "no true
// globals... everything is created at startup and passed into the router
// as typed extensions."
type Registry struct {
	services map[reflect.Type]any
}

func NewRegistry() *Registry {
	return &Registry{services: make(map[reflect.Type]any)}
}

// RegisterService stores v, keyed by the type parameter T (an interface
// type when T is one), not by v's dynamic type.
func RegisterService[T any](r *Registry, v T) {
	r.services[reflect.TypeOf((*T)(nil)).Elem()] = v
}

// Service retrieves the value registered for T, or the zero value and false
// if none was registered.
func Service[T any](r *Registry) (T, bool) {
	var zero T
	v, ok := r.services[reflect.TypeOf((*T)(nil)).Elem()]
	if !ok {
		return zero, false
	}
	return v.(T), true
}
