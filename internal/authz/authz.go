// Package authz gates portal routes by session role.
package authz

import (
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/go-faster/errors"
)

// modelText is a role/path/method matcher: a request is allowed when some
// policy line for the role keyMatches the path.
const modelText = `
[request_definition]
r = role, path, method

[policy_definition]
p = role, path, method

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.role == p.role && keyMatch(r.path, p.path) && (r.method == p.method || p.method == "*")
`

// policies maps each role to the route subtree it owns. Pages shared by
// both roles are listed twice.
var policies = [][]string{
	{"shop", "/shop/*", "*"},
	{"manufacturer", "/manufacturer/*", "*"},
}

// Enforcer answers whether a role may reach a path.
type Enforcer struct {
	e *casbin.Enforcer
}

// New builds the enforcer from the embedded model and policy set.
func New() (*Enforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, errors.Wrap(err, "parse authz model")
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, errors.Wrap(err, "create enforcer")
	}
	for _, p := range policies {
		if _, err := e.AddPolicy(p[0], p[1], p[2]); err != nil {
			return nil, errors.Wrap(err, "add policy")
		}
	}
	return &Enforcer{e: e}, nil
}

// Allow reports whether role may perform method on path.
func (e *Enforcer) Allow(role, path, method string) (bool, error) {
	ok, err := e.e.Enforce(role, path, method)
	if err != nil {
		return false, errors.Wrap(err, "enforce")
	}
	return ok, nil
}
