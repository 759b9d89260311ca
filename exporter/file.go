package exporter

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	lerror "lula/error"
	plogger "lula/logger"
)

type fileExporter[log any] struct {
	// dependency injection
	logger plogger.LulaLogger
	// fields
	exporterName string
	destination  string
	// stream
	logChannel  chan *log
	writeStream *os.File
	// thread control
	ctx      context.Context
	cancel   context.CancelFunc
	waitGrp  sync.WaitGroup
	wrapFunc func(*log) ([]byte, error)
	// conditional variable
	isClosed  int32
	isStarted int32
}

/************************************************************
* Getter & Setter
************************************************************/

func (fe *fileExporter[log]) Name() string {
	return fe.exporterName
}

func (fe *fileExporter[log]) LogChannel() chan<- *log {
	return fe.logChannel
}

/************************************************************
* Methods
************************************************************/

func (fe *fileExporter[log]) Start() {
	fe.waitGrp.Add(1)
	go fe.exportThread()
	// set conditional variable to 1
	atomic.StoreInt32(&fe.isStarted, 1)
}

func (fe *fileExporter[log]) Stop() error {
	// prevent double close
	if atomic.LoadInt32(&fe.isClosed) > 0 {
		return lerror.LulaGeneralError{
			Code:   lerror.InvalidOperationError,
			Origin: fmt.Errorf("exporter is already closed"),
			Msg:    fmt.Sprintf("error while execute exporter[%s].Stop()", fe.exporterName),
		}
	}
	// prevent call Stop() before Start()
	if atomic.LoadInt32(&fe.isStarted) <= 0 {
		return lerror.LulaGeneralError{
			Code:   lerror.InvalidOperationError,
			Origin: fmt.Errorf("exporter is not started"),
			Msg:    fmt.Sprintf("error while execute exporter[%s].Stop()", fe.exporterName),
		}
	}
	// wait until all indicators are exported
	for {
		if len(fe.logChannel) == 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	// cancel context
	fe.cancel()
	// wait export thread
	fe.waitGrp.Wait()
	// close log channel
	close(fe.logChannel)
	// close write stream
	err := fe.writeStream.Close()
	if err != nil {
		return lerror.LulaGeneralError{
			Code:   lerror.SystemError,
			Origin: err,
			Msg:    fmt.Sprintf("error while close Destination file[%s]", fe.destination),
		}
	}
	// set conditional variable to 1
	atomic.StoreInt32(&fe.isClosed, 1)
	return nil
}

/************************************************************
* Constructor
************************************************************/

func NewFileExporter[log any](name string,
	maxSize uint,
	wrapFunc func(*log) ([]byte, error),
	logger plogger.LulaLogger,
	destination string) (Exporter[log], error) {

	newFE := new(fileExporter[log])
	// dependency injection
	newFE.logger = logger
	newFE.destination = destination
	// context
	newFE.ctx, newFE.cancel = context.WithCancel(context.Background())
	// set fields
	newFE.exporterName = name
	newFE.wrapFunc = wrapFunc
	// open stream
	err := newFE.openStream(maxSize)
	if err != nil {
		return nil, lerror.LulaPipelineError{
			Code:   lerror.ErrExporterCreate,
			Origin: err,
			Msg:    fmt.Sprintf("error while construct new exporter[%s]", name),
		}
	}
	// set conditional variable to 0
	atomic.StoreInt32(&newFE.isClosed, 0)
	atomic.StoreInt32(&newFE.isStarted, 0)
	return newFE, nil
}

func (fe *fileExporter[log]) openStream(maxSize uint) error {
	var err error

	// check if exporter is already closed
	if atomic.LoadInt32(&fe.isClosed) > 0 || fe.logChannel != nil {
		return lerror.LulaGeneralError{
			Code:   lerror.InvalidOperationError,
			Origin: fmt.Errorf("exporter is already opened"),
			Msg:    fmt.Sprintf("error while execute exporter[%s].Open()", fe.exporterName),
		}
	}
	// init channel
	if maxSize == 0 {
		fe.logChannel = make(chan *log)
	} else {
		fe.logChannel = make(chan *log, maxSize)
	}
	// open target file in append mode, one line per exported record
	fe.writeStream, err = os.OpenFile(fe.destination, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return lerror.LulaGeneralError{
			Code:   lerror.InvalidOperationError,
			Origin: err,
			Msg:    fmt.Sprintf("error while open Destination file[%s]", fe.destination),
		}
	}
	return nil
}

func (fe *fileExporter[log]) exportThread() {
	var (
		logWrapper *log
		ok         bool
		out        []byte
		err        error
	)
	defer fe.waitGrp.Done()

	for {
		select {
		case <-fe.ctx.Done():
			return
		case logWrapper, ok = <-fe.logChannel:
			if !ok {
				return
			}
			// wrap log
			out, err = fe.wrapFunc(logWrapper)
			if err != nil {
				fe.logger.PrintError("error while wrap log %s", err.Error())
				continue
			}
			// append newline
			out = append(out, '\n')
			// export log
			_, err = fe.writeStream.Write(out)
			if err != nil {
				fe.logger.PrintError("error while write log %s", err.Error())
				// this is critical error and unrecoverable. so panic
				panic(err)
			}
		}
	}
}
