package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"lula/bundle"
	lerror "lula/error"
	"lula/filter"
	plogger "lula/logger"
	"lula/profile"

	"golang.org/x/sync/errgroup"
)

// # bundleWorker
//
// bundleWorker turns announced bundle files into exported indicators. Each
// file is one batch: the worker takes the current profile snapshot, builds
// an indicator filter for it, evaluates the batch entries in parallel and
// hands the survivors to the exporter in input order.
//
// The filter holds no mutable state and each entry is owned by exactly one
// goroutine, so the batch needs no locking.
type bundleWorker struct {
	// dependency injection
	loger       plogger.LulaLogger
	profWatcher profile.Watcher
	// fields
	workers int
	// streams
	fileChannel   <-chan string
	exportChannel chan<- *bundle.ObjectHistoryEntry
	// thread control
	ctx     context.Context
	cancel  context.CancelFunc
	waitGrp sync.WaitGroup
	// conditional variable
	isClosed  int32
	isStarted int32
}

func newBundleWorker(profWatcher profile.Watcher,
	fileChannel <-chan string,
	exportChannel chan<- *bundle.ObjectHistoryEntry,
	workers int,
	loger plogger.LulaLogger) *bundleWorker {

	nw := new(bundleWorker)

	// dependency injection
	nw.loger = loger
	nw.profWatcher = profWatcher
	// set fields
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	nw.workers = workers
	// set channels
	nw.fileChannel = fileChannel
	nw.exportChannel = exportChannel
	// context
	nw.ctx, nw.cancel = context.WithCancel(context.Background())
	// set conditional variable to 0
	atomic.StoreInt32(&nw.isClosed, 0)
	atomic.StoreInt32(&nw.isStarted, 0)
	return nw
}

func (bw *bundleWorker) Start() {
	bw.waitGrp.Add(1)
	go bw.workThread()
	// set conditional variable to 1
	atomic.StoreInt32(&bw.isStarted, 1)
}

func (bw *bundleWorker) Stop() error {
	// prevent double close
	if atomic.LoadInt32(&bw.isClosed) > 0 {
		return lerror.LulaGeneralError{
			Code:   lerror.InvalidOperationError,
			Origin: fmt.Errorf("bundle worker is already closed"),
			Msg:    "error while execute bundleWorker.Stop()",
		}
	}
	// prevent call Stop() before Start()
	if atomic.LoadInt32(&bw.isStarted) <= 0 {
		return lerror.LulaGeneralError{
			Code:   lerror.InvalidOperationError,
			Origin: fmt.Errorf("bundle worker is not started"),
			Msg:    "error while execute bundleWorker.Stop()",
		}
	}
	// wait until announced bundles are processed
	for {
		if len(bw.fileChannel) == 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	// cancel context
	bw.cancel()
	// wait work thread
	bw.waitGrp.Wait()
	// set conditional variable to 1
	atomic.StoreInt32(&bw.isClosed, 1)
	return nil
}

func (bw *bundleWorker) workThread() {
	defer bw.waitGrp.Done()

	for {
		select {
		case <-bw.ctx.Done():
			return
		case path, ok := <-bw.fileChannel:
			if !ok {
				return
			}
			bw.processFile(path)
		}
	}
}

// processFile evaluates one bundle file against the current profile
// snapshot. Decode faults retire the file as .err and the service moves on;
// a finished file is retired as .done so it is never picked up again.
func (bw *bundleWorker) processFile(path string) {
	snapshot := bw.profWatcher.Current()
	flt, err := filter.NewIndicatorFilter(snapshot)
	if err != nil {
		bw.loger.PrintError("bundle [%s]: cannot build indicator filter: %s", path, err.Error())
		bw.retire(path, ".err")
		return
	}

	bd, err := bundle.ReadFile(path)
	if err != nil {
		var generalErr lerror.LulaGeneralError
		if errors.As(err, &generalErr) && generalErr.Code == lerror.InvalidArgumentError {
			// the file disappeared between discovery and processing;
			// nothing to retire
			return
		}
		bw.loger.PrintError("bundle [%s]: %s", path, err.Error())
		bw.retire(path, ".err")
		return
	}

	entries := bd.Objects
	keep := make([]bool, len(entries))

	grp := new(errgroup.Group)
	grp.SetLimit(bw.workers)
	for at, entry := range entries {
		at, entry := at, entry
		grp.Go(func() error {
			// one goroutine owns one entry; the snapshot is immutable
			keep[at] = flt.EvaluateEntry(entry)
			return nil
		})
	}
	grp.Wait()

	// survivors leave in input order
	exported := 0
	for at, entry := range entries {
		if !keep[at] {
			continue
		}
		select {
		case <-bw.ctx.Done():
			// shutdown mid-batch: keep the file so the next run redoes it
			return
		case bw.exportChannel <- entry:
			exported++
		}
	}

	bw.retire(path, ".done")
	bw.loger.PrintInfo("bundle [%s]: %d candidates in, %d indicators out",
		filepath.Base(path), len(entries), exported)
}

func (bw *bundleWorker) retire(path string, mark string) {
	if err := os.Rename(path, path+mark); err != nil {
		bw.loger.PrintError("error while retire bundle [%s]: %s", path, err.Error())
	}
}
