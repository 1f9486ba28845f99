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

package coordination

import (
	"context"
	"sync"
)

// LocalLocker grants named locks within a single process. Suitable for
// single-instance deployments and tests; multi-instance deployments
// need EtcdLocker.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

// NewLocalLocker .
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]chan struct{})}
}

// Lock acquires the named lock, blocking until granted or ctx ends.
func (l *LocalLocker) Lock(ctx context.Context, name string) (Unlock, error) {
	l.mu.Lock()
	sem, ok := l.locks[name]
	if !ok {
		sem = make(chan struct{}, 1)
		l.locks[name] = sem
	}
	l.mu.Unlock()

	select {
	case sem <- struct{}{}:
		return func() { <-sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
