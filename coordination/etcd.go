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
	"fmt"
	"time"

	"github.com/go-logr/logr"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"
)

const dialTimeout = 5 * time.Second

// EtcdLocker serializes switch access through etcd. Each acquired lock
// rides its own lease so a crashed holder releases within the TTL.
type EtcdLocker struct {
	cli *clientv3.Client
	ttl int
	log logr.Logger
}

// NewEtcdLocker connects to etcd. ttl is the lease lifetime in
// seconds; 30 matches the default liveness heartbeat of the
// coordination backends this replaces.
func NewEtcdLocker(endpoints []string, ttl int, log logr.Logger) (*EtcdLocker, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("{NewEtcdLocker} no endpoints provided")
	}
	if ttl <= 0 {
		ttl = 30
	}
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: dialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("{NewEtcdLocker} %w", err)
	}
	return &EtcdLocker{cli: cli, ttl: ttl, log: log}, nil
}

// Lock acquires the named lock, blocking until granted or ctx ends.
func (l *EtcdLocker) Lock(ctx context.Context, name string) (Unlock, error) {
	session, err := concurrency.NewSession(l.cli, concurrency.WithTTL(l.ttl))
	if err != nil {
		return nil, fmt.Errorf("{Lock} %s: %w", name, err)
	}
	mu := concurrency.NewMutex(session, LockPrefix+name)
	if err := mu.Lock(ctx); err != nil {
		session.Close()
		return nil, fmt.Errorf("{Lock} %s: %w", name, err)
	}
	return func() {
		if err := mu.Unlock(context.Background()); err != nil {
			l.log.Error(err, "failed to unlock, lease TTL will release it", "lock", name)
		}
		session.Close()
	}, nil
}

// Close tears down the etcd client.
func (l *EtcdLocker) Close() error {
	return l.cli.Close()
}
