package watcher

import (
	"os"
	"time"
)

// fileSnapshot is the state the poller compares between ticks.
type fileSnapshot struct {
	exists  bool
	modTime time.Time
	size    int64
}

func snapshot(path string) fileSnapshot {
	info, err := os.Stat(path)
	if err != nil {
		return fileSnapshot{}
	}
	return fileSnapshot{exists: true, modTime: info.ModTime(), size: info.Size()}
}

// poller detects changes to one file by comparing snapshots.
type poller struct {
	path string
	last fileSnapshot
}

func newPoller(path string) *poller {
	return &poller{path: path, last: snapshot(path)}
}

// check takes a new snapshot and reports the change since the last one.
func (p *poller) check(now time.Time) (FileEvent, bool) {
	cur := snapshot(p.path)
	prev := p.last
	p.last = cur

	var op Operation
	switch {
	case !prev.exists && cur.exists:
		op = OpCreate
	case prev.exists && !cur.exists:
		op = OpDelete
	case cur.exists && (!cur.modTime.Equal(prev.modTime) || cur.size != prev.size):
		op = OpModify
	default:
		return FileEvent{}, false
	}
	return FileEvent{Path: p.path, Operation: op, Timestamp: now}, true
}
