package core

// Option mutates Runtime state during New/Apply. It is the framework's
// only extension point.
type Option func(rt *Runtime) error
