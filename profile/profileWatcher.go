package profile

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	lerror "lula/error"
	plogger "lula/logger"

	"github.com/fsnotify/fsnotify"
)

const (
	debounceTick     = 100 * time.Millisecond
	debounceInterval = 500 * time.Millisecond
)

// Watcher republishes the profile as a new immutable snapshot whenever the
// profile file changes on disk. A reload that fails keeps the last good
// snapshot, so the pipeline never observes a partially valid configuration.
// Batch processors read Current() once and keep that pointer for the whole
// batch.
type Watcher interface {
	Current() *Profile
	Start()
	Stop() error
}

type watcher struct {
	// dependency injection
	loger plogger.LulaLogger
	// fields
	path string
	// stream
	fsWatcher *fsnotify.Watcher
	// snapshot
	current atomic.Pointer[Profile]
	// thread control
	ctx     context.Context
	cancel  context.CancelFunc
	waitGrp sync.WaitGroup
	// conditional variable
	isClosed  int32
	isStarted int32
}

func NewWatcher(file ProfileFile, loger plogger.LulaLogger) (Watcher, error) {
	var err error

	nw := new(watcher)

	// dependency injection
	nw.loger = loger
	// seed snapshot from the already loaded file
	nw.path = file.Path()
	nw.current.Store(file.GetProfile())
	// context
	nw.ctx, nw.cancel = context.WithCancel(context.Background())

	nw.fsWatcher, err = fsnotify.NewWatcher()
	if err != nil {
		return nil, lerror.LulaProfileError{
			Code:   lerror.ErrProfileWatch,
			Origin: err,
			Msg:    "error while Construct new watcher",
		}
	}
	// editors replace files on save, so watch the directory and react to
	// events naming the profile file.
	err = nw.fsWatcher.Add(filepath.Dir(nw.path))
	if err != nil {
		nw.fsWatcher.Close()
		return nil, lerror.LulaProfileError{
			Code:   lerror.ErrProfileWatch,
			Origin: err,
			Msg:    "error while Construct new watcher",
		}
	}
	// set conditional variable to 0
	atomic.StoreInt32(&nw.isClosed, 0)
	atomic.StoreInt32(&nw.isStarted, 0)
	return nw, nil
}

func (w *watcher) Current() *Profile {
	return w.current.Load()
}

func (w *watcher) Start() {
	w.waitGrp.Add(1)
	go w.watchThread()
	// set conditional variable to 1
	atomic.StoreInt32(&w.isStarted, 1)
}

func (w *watcher) Stop() error {
	// prevent double close
	if atomic.LoadInt32(&w.isClosed) > 0 {
		return lerror.LulaGeneralError{
			Code:   lerror.InvalidOperationError,
			Origin: fmt.Errorf("watcher is already closed"),
			Msg:    fmt.Sprintf("error while execute watcher[%s].Stop()", w.path),
		}
	}
	// prevent call Stop() before Start()
	if atomic.LoadInt32(&w.isStarted) <= 0 {
		return lerror.LulaGeneralError{
			Code:   lerror.InvalidOperationError,
			Origin: fmt.Errorf("watcher is not started"),
			Msg:    fmt.Sprintf("error while execute watcher[%s].Stop()", w.path),
		}
	}
	// cancel context
	w.cancel()
	// wait watch thread
	w.waitGrp.Wait()
	// close fs watcher
	err := w.fsWatcher.Close()
	if err != nil {
		return lerror.LulaGeneralError{
			Code:   lerror.SystemError,
			Origin: err,
			Msg:    fmt.Sprintf("error while execute watcher[%s].Stop()", w.path),
		}
	}
	// set conditional variable to 1
	atomic.StoreInt32(&w.isClosed, 1)
	return nil
}

func (w *watcher) watchThread() {
	defer w.waitGrp.Done()

	ticker := time.NewTicker(debounceTick)
	defer ticker.Stop()

	var pendingAt time.Time
	pending := false

	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = true
			pendingAt = time.Now()
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.loger.PrintError("error while watch profile file: %s", err.Error())
		case <-ticker.C:
			// wait for the burst of events one save produces to settle
			if !pending || time.Since(pendingAt) < debounceInterval {
				continue
			}
			pending = false
			w.reload()
		}
	}
}

func (w *watcher) reload() {
	file, err := NewProfileFile(w.path)
	if err != nil {
		// keep the last good snapshot
		w.loger.PrintError("profile reload rejected, keeping previous snapshot: %s", err.Error())
		return
	}
	w.current.Store(file.GetProfile())
	w.loger.PrintInfo("profile reloaded from %s, %d supported objects", w.path, len(file.GetProfile().Objects))
}
