package importer

import (
	"errors"
	"sync/atomic"
)

// ErrImportInProgress 已有导入在执行
var ErrImportInProgress = errors.New("an import is already in progress")

// Guard 进程内同一时刻最多一个导入
type Guard struct {
	busy atomic.Bool
}

// Acquire 占用导入槽位；release 可重复调用
func (g *Guard) Acquire() (release func(), err error) {
	if !g.busy.CompareAndSwap(false, true) {
		return nil, ErrImportInProgress
	}
	var once atomic.Bool
	return func() {
		if once.CompareAndSwap(false, true) {
			g.busy.Store(false)
		}
	}, nil
}

// Busy 是否有导入在执行
func (g *Guard) Busy() bool {
	return g.busy.Load()
}
