// Package resolver turns window handles into metadata snapshots.
package resolver

import (
	"context"
	"log"
	"time"

	"github.com/actionsum/focusstat/pkg/window"
)

// ProcessLookup maps a process id to its executable name
type ProcessLookup interface {
	Name(ctx context.Context, pid uint32) (string, error)
}

// Resolver queries window metadata. It never fails: missing properties,
// destroyed windows and slow servers all degrade to empty fields.
type Resolver struct {
	props   window.Properties
	procs   ProcessLookup
	timeout time.Duration
}

// New creates a resolver. procs may be nil.
func New(props window.Properties, procs ProcessLookup, timeout time.Duration) *Resolver {
	return &Resolver{
		props:   props,
		procs:   procs,
		timeout: timeout,
	}
}

// Resolve returns the metadata of h, bounded by the resolver timeout
func (r *Resolver) Resolve(ctx context.Context, h window.Handle) window.WindowInfo {
	if h == window.NoWindow {
		return window.WindowInfo{}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	result := make(chan window.WindowInfo, 1)
	go func() {
		result <- r.query(ctx, h)
	}()

	select {
	case info := <-result:
		return info
	case <-ctx.Done():
		log.Printf("Metadata lookup for window 0x%x timed out after %v", uint32(h), r.timeout)
		return window.WindowInfo{}
	}
}

func (r *Resolver) query(ctx context.Context, h window.Handle) window.WindowInfo {
	var info window.WindowInfo

	if title, err := r.props.WindowTitle(h); err == nil {
		info.Name = title
	}
	if instance, class, err := r.props.WindowClass(h); err == nil {
		info.Instance = instance
		info.Class = class
	}
	if pid, err := r.props.WindowPID(h); err == nil {
		info.PID = pid
	}

	if info.PID != 0 && r.procs != nil {
		if name, err := r.procs.Name(ctx, info.PID); err == nil {
			info.ProcessName = name
		}
	}

	return info
}
