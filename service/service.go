package service

import (
	"encoding/json"
	"fmt"
	"sync/atomic"

	"lula/bundle"
	lerror "lula/error"
	"lula/exporter"
	plogger "lula/logger"
	"lula/profile"

	"go.uber.org/multierr"
)

// indicators queued between the bundle worker and the exporter
const exportQueueSize = 256

// # Service
//
// Service is the long-running composition: a profile watcher publishing
// immutable configuration snapshots, an inbox worker announcing bundle
// files, a bundle worker filtering their entries, and a file exporter
// appending the surviving indicators to the destination.
//
// Start() brings the threads up back to front so every producer finds its
// consumer running; Stop() tears them down front to back and drains each
// stage, so indicators accepted before Stop() reach the destination.
type Service interface {
	Start() error
	Wait() error
	Stop() error
}

type service struct {
	// dependency injection
	loger plogger.LulaLogger
	info  *profile.ServiceInfo
	// collaborators
	profWatcher profile.Watcher
	inbox       *inboxWorker
	worker      *bundleWorker
	exporter    exporter.Exporter[bundle.ObjectHistoryEntry]
	// thread control
	done chan struct{}
	// conditional variable
	isClosed  int32
	isStarted int32
}

func wrapIndicatorEntry(entry *bundle.ObjectHistoryEntry) ([]byte, error) {
	return json.Marshal(entry)
}

func NewService(prof profile.ProfileFile, loger plogger.LulaLogger) (Service, error) {
	var err error

	if prof == nil || prof.GetProfile() == nil {
		return nil, lerror.LulaPipelineError{
			Code:   lerror.ErrServiceCreate,
			Origin: fmt.Errorf("profile is nil"),
			Msg:    "error while construct new service",
		}
	}
	info := prof.GetProfile().Service
	if info == nil {
		return nil, lerror.LulaPipelineError{
			Code:   lerror.ErrServiceCreate,
			Origin: fmt.Errorf("profile [%s] has no service section", prof.Path()),
			Msg:    "error while construct new service",
		}
	}

	ns := new(service)

	// dependency injection
	ns.loger = loger
	ns.info = info
	// destination sink
	ns.exporter, err = exporter.NewFileExporter("indicators", exportQueueSize,
		wrapIndicatorEntry, loger, info.Destination)
	if err != nil {
		return nil, err
	}
	// profile snapshots
	ns.profWatcher, err = profile.NewWatcher(prof, loger)
	if err != nil {
		return nil, err
	}
	// bundle intake
	ns.inbox, err = newInboxWorker(info.Inbox, loger)
	if err != nil {
		return nil, err
	}
	// batch evaluation
	ns.worker = newBundleWorker(ns.profWatcher, ns.inbox.FileChannel(),
		ns.exporter.LogChannel(), info.Workers, loger)

	ns.done = make(chan struct{})
	// set conditional variable to 0
	atomic.StoreInt32(&ns.isClosed, 0)
	atomic.StoreInt32(&ns.isStarted, 0)
	return ns, nil
}

func (s *service) Start() error {
	// prevent double start
	if atomic.LoadInt32(&s.isStarted) > 0 {
		return lerror.LulaPipelineError{
			Code:   lerror.ErrServiceState,
			Origin: fmt.Errorf("service is already started"),
			Msg:    "error while execute service.Start()",
		}
	}
	// consumers first, producers last
	s.exporter.Start()
	s.profWatcher.Start()
	s.worker.Start()
	s.inbox.Start()
	// set conditional variable to 1
	atomic.StoreInt32(&s.isStarted, 1)

	s.loger.PrintInfo("service started: inbox [%s], destination [%s], %d workers",
		s.info.Inbox, s.info.Destination, s.worker.workers)
	return nil
}

// Wait blocks until Stop() has torn the service down.
func (s *service) Wait() error {
	if atomic.LoadInt32(&s.isStarted) <= 0 {
		return lerror.LulaPipelineError{
			Code:   lerror.ErrServiceState,
			Origin: fmt.Errorf("service is not started"),
			Msg:    "error while execute service.Wait()",
		}
	}
	<-s.done
	return nil
}

func (s *service) Stop() error {
	// prevent double close
	if atomic.LoadInt32(&s.isClosed) > 0 {
		return lerror.LulaPipelineError{
			Code:   lerror.ErrServiceState,
			Origin: fmt.Errorf("service is already closed"),
			Msg:    "error while execute service.Stop()",
		}
	}
	// prevent call Stop() before Start()
	if atomic.LoadInt32(&s.isStarted) <= 0 {
		return lerror.LulaPipelineError{
			Code:   lerror.ErrServiceState,
			Origin: fmt.Errorf("service is not started"),
			Msg:    "error while execute service.Stop()",
		}
	}

	// tear down stage by stage: stop discovery, drain the queued bundles,
	// stop the snapshot publisher, flush the exporter
	var errs error
	errs = multierr.Append(errs, s.inbox.Stop())
	errs = multierr.Append(errs, s.worker.Stop())
	errs = multierr.Append(errs, s.profWatcher.Stop())
	errs = multierr.Append(errs, s.exporter.Stop())

	// set conditional variable to 1
	atomic.StoreInt32(&s.isClosed, 1)
	close(s.done)

	if errs != nil {
		return lerror.LulaPipelineError{
			Code:   lerror.ErrServiceState,
			Origin: errs,
			Msg:    "error while execute service.Stop()",
		}
	}
	s.loger.PrintInfo("service stopped")
	return nil
}
