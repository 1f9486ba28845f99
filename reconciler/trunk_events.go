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

package reconciler

import (
	"context"
	"fmt"

	"go.uber.org/zap/zapcore"

	"github.com/physnetops/switchport-reconciler/metrics"
)

// EnsureSubports rewrites a trunk parent's full member set after a
// sub-port was added or removed. The trunk helper calls this with just
// the parent port id; everything else is re-read so the trunk on the
// device always reflects the membership of record, not the event.
func (r *Reconciler) EnsureSubports(ctx context.Context, portID string) error {
	debugLogger := r.Log.V(int(zapcore.WarnLevel))

	port, err := r.Plane.GetPort(ctx, portID)
	if err != nil {
		return fmt.Errorf("{EnsureSubports} %w", err)
	}
	// a deleted parent's own delete event removes the trunked vlans by
	// mac, nothing to do here
	if port == nil {
		debugLogger.Info("discarding attempt to ensure subports on a deleted port", "port", portID)
		metrics.Discard(metrics.DiscardPortGone)
		return nil
	}

	mappings, _, err := r.switchMeta(port, nil)
	if err != nil {
		return err
	}
	if len(mappings) == 0 {
		return nil
	}
	m := mappings[0]

	unlock, err := r.Locker.Lock(ctx, m.SwitchName)
	if err != nil {
		return fmt.Errorf("{EnsureSubports} lock %s: %w", m.SwitchName, err)
	}
	defer unlock()

	updated, err := r.Plane.GetPort(ctx, portID)
	if err != nil {
		return fmt.Errorf("{EnsureSubports} %w", err)
	}
	if updated == nil {
		debugLogger.Info("discarding attempt to ensure subports on a port deleted after lock acquisition", "port", portID)
		metrics.Discard(metrics.DiscardPortGone)
		return nil
	}
	return r.setPortState(ctx, updated, m.SwitchName, m.SwitchPort)
}
