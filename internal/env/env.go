package env

import (
	"maps"
	"os"
	"strings"
)

type Var map[string]string

// Env resolves ${VAR} references inside configuration values such as
// sink DSNs and API tokens. The base comes from the OS environment;
// explicit overrides set via Set win over the base.
type Env struct {
	Var Var // explicit overrides (K->V)
	env Var // cached base from OS environment
}

func New() *Env {
	return &Env{
		Var: make(Var),
	}
}

// FromOS caches the current process environment as the base.
func (e *Env) FromOS() {
	base := make(Var)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			base[k] = v
		}
	}
	e.env = base
}

// Isolate drops the OS base so only explicit overrides resolve.
func (e *Env) Isolate() {
	e.env = make(Var)
}

// Set sets an override K=V.
func (e *Env) Set(k, v string) {
	if e.Var == nil {
		e.Var = make(Var)
	}
	e.Var[k] = v
}

// Unset removes an override.
func (e *Env) Unset(k string) {
	if e.Var != nil {
		delete(e.Var, k)
	}
}

// Lookup reports the value for k, overrides first, then the OS base.
func (e *Env) Lookup(k string) (string, bool) {
	if v, ok := e.Var[k]; ok {
		return v, true
	}
	if e.env == nil {
		e.FromOS()
	}
	v, ok := e.env[k]
	return v, ok
}

// Expand replaces ${VAR} references in s, overrides winning over the
// OS base. Unknown variables stay in place, and replaced text is never
// rescanned, so values cannot expand recursively.
func (e *Env) Expand(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	if e.env == nil {
		e.FromOS()
	}
	m := maps.Clone(e.env)
	for k, v := range e.Var {
		if k != "" {
			m[k] = v
		}
	}

	pairs := make([]string, 0, 2*len(m))
	for k, v := range m {
		pairs = append(pairs, "${"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(s)
}
