package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	lerror "lula/error"
	plogger "lula/logger"

	"github.com/fsnotify/fsnotify"
)

const (
	inboxDebounceTick     = 100 * time.Millisecond
	inboxDebounceInterval = 500 * time.Millisecond
)

// # inboxWorker
//
// inboxWorker feeds bundle file paths to the bundle worker. On start it
// announces every bundle file already sitting in the inbox, then announces
// files the directory watcher reports. Events are debounced per file so a
// bundle still being copied in is announced once, after the writes settle.
type inboxWorker struct {
	// dependency injection
	loger plogger.LulaLogger
	// fields
	dir string
	// stream
	fsWatcher   *fsnotify.Watcher
	fileChannel chan string
	// thread control
	ctx     context.Context
	cancel  context.CancelFunc
	waitGrp sync.WaitGroup
	// conditional variable
	isClosed  int32
	isStarted int32
}

func (iw *inboxWorker) FileChannel() <-chan string {
	return iw.fileChannel
}

func newInboxWorker(dir string, loger plogger.LulaLogger) (*inboxWorker, error) {
	var err error

	nw := new(inboxWorker)

	// dependency injection
	nw.loger = loger
	// set fields
	nw.dir = dir
	nw.fileChannel = make(chan string, 64)
	// context
	nw.ctx, nw.cancel = context.WithCancel(context.Background())

	nw.fsWatcher, err = fsnotify.NewWatcher()
	if err != nil {
		return nil, lerror.LulaPipelineError{
			Code:   lerror.ErrWatcherCreate,
			Origin: err,
			Msg:    fmt.Sprintf("error while construct new inbox worker[%s]", dir),
		}
	}
	err = nw.fsWatcher.Add(dir)
	if err != nil {
		nw.fsWatcher.Close()
		return nil, lerror.LulaPipelineError{
			Code:   lerror.ErrWatcherCreate,
			Origin: err,
			Msg:    fmt.Sprintf("error while construct new inbox worker[%s]", dir),
		}
	}
	// set conditional variable to 0
	atomic.StoreInt32(&nw.isClosed, 0)
	atomic.StoreInt32(&nw.isStarted, 0)
	return nw, nil
}

func (iw *inboxWorker) Start() {
	iw.waitGrp.Add(1)
	go iw.watchThread()
	// set conditional variable to 1
	atomic.StoreInt32(&iw.isStarted, 1)
}

func (iw *inboxWorker) Stop() error {
	// prevent double close
	if atomic.LoadInt32(&iw.isClosed) > 0 {
		return lerror.LulaGeneralError{
			Code:   lerror.InvalidOperationError,
			Origin: fmt.Errorf("inbox worker is already closed"),
			Msg:    fmt.Sprintf("error while execute inboxWorker[%s].Stop()", iw.dir),
		}
	}
	// prevent call Stop() before Start()
	if atomic.LoadInt32(&iw.isStarted) <= 0 {
		return lerror.LulaGeneralError{
			Code:   lerror.InvalidOperationError,
			Origin: fmt.Errorf("inbox worker is not started"),
			Msg:    fmt.Sprintf("error while execute inboxWorker[%s].Stop()", iw.dir),
		}
	}
	// cancel context
	iw.cancel()
	// wait watch thread
	iw.waitGrp.Wait()
	// close fs watcher
	err := iw.fsWatcher.Close()
	if err != nil {
		return lerror.LulaGeneralError{
			Code:   lerror.SystemError,
			Origin: err,
			Msg:    fmt.Sprintf("error while execute inboxWorker[%s].Stop()", iw.dir),
		}
	}
	// close file channel so the bundle worker drains and exits
	close(iw.fileChannel)
	// set conditional variable to 1
	atomic.StoreInt32(&iw.isClosed, 1)
	return nil
}

// isBundleFile keeps processed (.done) and rejected (.err) files from being
// picked up again.
func isBundleFile(name string) bool {
	return strings.HasSuffix(name, ".json")
}

func (iw *inboxWorker) watchThread() {
	defer iw.waitGrp.Done()

	// announce the backlog already sitting in the inbox
	iw.announceExisting()

	ticker := time.NewTicker(inboxDebounceTick)
	defer ticker.Stop()

	pending := make(map[string]time.Time)

	for {
		select {
		case <-iw.ctx.Done():
			return
		case event, ok := <-iw.fsWatcher.Events:
			if !ok {
				return
			}
			if !isBundleFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending[event.Name] = time.Now()
		case err, ok := <-iw.fsWatcher.Errors:
			if !ok {
				return
			}
			iw.loger.PrintError("error while watch inbox[%s]: %s", iw.dir, err.Error())
		case <-ticker.C:
			for path, at := range pending {
				// wait for the burst of events one copy produces to settle
				if time.Since(at) < inboxDebounceInterval {
					continue
				}
				delete(pending, path)
				// the event may be the echo of our own rename; announce
				// only files still present
				if _, err := os.Stat(path); err != nil {
					continue
				}
				if !iw.announce(path) {
					return
				}
			}
		}
	}
}

func (iw *inboxWorker) announceExisting() {
	paths, err := filepath.Glob(filepath.Join(iw.dir, "*.json"))
	if err != nil {
		iw.loger.PrintError("error while scan inbox[%s]: %s", iw.dir, err.Error())
		return
	}
	sort.Strings(paths)
	for _, path := range paths {
		if !iw.announce(path) {
			return
		}
	}
}

func (iw *inboxWorker) announce(path string) bool {
	select {
	case <-iw.ctx.Done():
		return false
	case iw.fileChannel <- path:
		return true
	}
}
