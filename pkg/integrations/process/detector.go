package process

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	gproc "github.com/shirou/gopsutil/v3/process"
)

// Lookup resolves process ids to process names
type Lookup struct{}

// NewLookup creates a process lookup backed by gopsutil
func NewLookup() *Lookup {
	return &Lookup{}
}

// Name returns the executable name of pid
func (l *Lookup) Name(ctx context.Context, pid uint32) (string, error) {
	if pid == 0 {
		return "", errors.New("no process id")
	}

	p, err := gproc.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return "", errors.Wrapf(err, "failed to find process %d", pid)
	}

	name, err := p.NameWithContext(ctx)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read name of process %d", pid)
	}

	return strings.TrimSpace(name), nil
}
