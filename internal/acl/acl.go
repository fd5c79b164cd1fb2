// Copyright 2025 The Skydash Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package acl is the boundary to the external permission system. The core
// only ever asks two questions: is the caller an administrator, and which
// services may the caller view.
package acl

import (
	"context"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/server/auth"
)

// Authorizer answers the two authorization questions this core needs.
type Authorizer interface {
	// IsAdmin reports whether the caller is a cloud administrator.
	IsAdmin(ctx context.Context) (bool, error)

	// OwnedServices returns the services the caller administers.
	OwnedServices(ctx context.Context) ([]string, error)
}

// GroupAuthorizer implements Authorizer on top of the server's auth state:
// admins are members of AdminGroup, owned services come from the injected
// lookup (the user store is an external collaborator).
type GroupAuthorizer struct {
	AdminGroup string
	Owned      func(ctx context.Context) ([]string, error)
}

// IsAdmin implements Authorizer.
func (g *GroupAuthorizer) IsAdmin(ctx context.Context) (bool, error) {
	yes, err := auth.IsMember(ctx, g.AdminGroup)
	if err != nil {
		return false, errors.Annotate(err, "checking membership in %q", g.AdminGroup)
	}
	return yes, nil
}

// OwnedServices implements Authorizer.
func (g *GroupAuthorizer) OwnedServices(ctx context.Context) ([]string, error) {
	if g.Owned == nil {
		return nil, nil
	}
	return g.Owned(ctx)
}

// CanView reports whether the caller may view the given service's logs:
// admins see everything, everyone else only what they own.
func CanView(ctx context.Context, a Authorizer, service string) (bool, error) {
	admin, err := a.IsAdmin(ctx)
	if err != nil {
		return false, err
	}
	if admin {
		return true, nil
	}
	owned, err := a.OwnedServices(ctx)
	if err != nil {
		return false, err
	}
	for _, s := range owned {
		if s == service {
			return true, nil
		}
	}
	return false, nil
}

// FilterServices narrows names down to the services the caller may view,
// preserving order.
func FilterServices(ctx context.Context, a Authorizer, names []string) ([]string, error) {
	admin, err := a.IsAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if admin {
		return names, nil
	}
	owned, err := a.OwnedServices(ctx)
	if err != nil {
		return nil, err
	}
	allowed := make(map[string]bool, len(owned))
	for _, s := range owned {
		allowed[s] = true
	}
	var out []string
	for _, n := range names {
		if allowed[n] {
			out = append(out, n)
		}
	}
	return out, nil
}
