// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

/*
Package authz decides which backend operations an iRODS user type may invoke.

It wraps a Casbin RBAC enforcer. Subjects are user types (rodsuser,
groupadmin, rodsadmin), objects are backend API names such as genquery or
general_admin, and actions are API-specific verbs such as add_user. The role
hierarchy is:

	rodsadmin -> groupadmin -> rodsuser

The model and policy are embedded (model.conf, policy.csv). Deployments can
supply their own files through Config; a file policy is loaded with the
Casbin file adapter.

Acting as a proxy for another user is checked as the object "identity" with
the action "switch".
*/
package authz
