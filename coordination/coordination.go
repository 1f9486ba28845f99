/*
Copyright 2026. Physnet Ops, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package coordination provides the named locks that serialize switch
// access across driver processes. The driver takes one lock per switch
// for the whole read-validate-write cycle; locks are advisory between
// driver instances and fenced by a liveness TTL so a dead holder never
// wedges a switch.
package coordination

import "context"

// LockPrefix namespaces every switch lock key in the shared store.
const LockPrefix = "/switchport-reconciler/locks/"

// Unlock releases a held lock.
type Unlock func()

// Locker grants named locks. Lock blocks until the lock is acquired or
// the context ends.
type Locker interface {
	Lock(ctx context.Context, name string) (Unlock, error)
}
