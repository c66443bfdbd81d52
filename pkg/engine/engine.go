// Package engine implements the asynchronous, pull-based scan engine: a
// worker pool that ingests document-reference batches, resolves and
// compiles each document in parallel with scanning, and streams output
// batches back to the caller.
//
// The pool is pull-based rather than push-based: each worker announces
// its own identifier on a shared request channel and then blocks on a
// private input channel, so the coordinator only ever hands work to a
// worker that is actually idle. No queue depth needs to be sized in
// advance.
package engine

import (
	"errors"
	"os"
	"sync"

	"github.com/sourcegraph/conc/panics"

	"github.com/shaneisley/ieql/pkg/document"
	"github.com/shaneisley/ieql/pkg/ieqllog"
	"github.com/shaneisley/ieql/pkg/optimizer"
	"github.com/shaneisley/ieql/pkg/output"
	"github.com/shaneisley/ieql/pkg/scanner"
)

// ErrClosed is returned by Submit once Shutdown has been called.
var ErrClosed = errors.New("engine: submission channel closed")

// Reference is the tagged-variant DocumentReference: either a
// caller-populated Document or a path the engine must resolve itself.
// Deferring resolution to the worker lets the coordinator hand out
// batches without doing any I/O up front.
type Reference struct {
	doc  *document.Document
	path string
}

// Populated wraps an in-memory Document as a Reference.
func Populated(d document.Document) Reference {
	return Reference{doc: &d}
}

// Unpopulated wraps a filesystem path as a Reference, deferring loading
// to the worker that scans it.
func Unpopulated(path string) Reference {
	return Reference{path: path}
}

func (r Reference) describe() string {
	if r.doc != nil {
		if r.doc.URL != nil {
			return *r.doc.URL
		}
		return "<in-memory document>"
	}
	return r.path
}

// Batch is a group of document references submitted together. Outputs
// within one batch are ordered per §4.4; outputs across different
// batches may interleave arbitrarily.
type Batch []Reference

// DocumentLoader resolves an Unpopulated Reference's path to bytes.
// IoErrors from a loader skip that document silently; the batch
// continues.
type DocumentLoader interface {
	Load(path string) (document.Document, error)
}

// IoError reports that a worker could not resolve an Unpopulated
// Reference.
type IoError struct {
	Path   string
	Reason error
}

func (e *IoError) Error() string { return "unable to load " + e.Path + ": " + e.Reason.Error() }
func (e *IoError) Unwrap() error { return e.Reason }

// FileLoader is the default DocumentLoader: plain filesystem reads,
// with no MIME detection beyond what the caller supplies (out of scope
// per the external interfaces contract).
type FileLoader struct{}

// Load reads path from the local filesystem.
func (FileLoader) Load(path string) (document.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return document.Document{}, &IoError{Path: path, Reason: err}
	}
	url := path
	return document.Document{URL: &url, Data: data}, nil
}

// Hooks lets a caller observe per-document outcomes the coordinator
// itself has no use for (metrics, progress reporting) without widening
// the Engine/output.Batch contract. Any field may be left nil.
type Hooks struct {
	// OnDocumentProcessed is called once for every document that was
	// successfully resolved and compiled, before it is scanned,
	// regardless of whether scanning it produces any output.
	OnDocumentProcessed func()
	// OnDocumentLoadFailed and OnDocumentCompileFailed are called once
	// for every document dropped from a batch at that stage, alongside
	// the existing log line. Kept as two callbacks rather than one so a
	// caller can distinguish them without re-inspecting err.
	OnDocumentLoadFailed    func(ref Reference, err error)
	OnDocumentCompileFailed func(ref Reference, err error)
}

// Engine is the handle returned by New: the public ScanInterface.
type Engine struct {
	group  *optimizer.Group
	loader DocumentLoader
	log    *ieqllog.Logger
	hooks  Hooks

	submitCh  chan Batch
	requestCh chan int
	inputs    []chan Batch
	outputCh  chan output.Batch

	mu     sync.Mutex
	closed bool

	pendingMu sync.Mutex
	pending   int

	workers sync.WaitGroup
}

// New starts a scan engine with workerCount workers scanning against
// group. batchSizeHint is used only for the startup log line; the
// engine itself places no limit on a submitted Batch's size. hooks may
// be the zero value when the caller has no use for per-document
// callbacks.
func New(group *optimizer.Group, workerCount int, loader DocumentLoader, log *ieqllog.Logger, batchSizeHint int, hooks Hooks) *Engine {
	if workerCount < 1 {
		workerCount = 1
	}
	if loader == nil {
		loader = FileLoader{}
	}

	e := &Engine{
		group:     group,
		loader:    loader,
		log:       log,
		hooks:     hooks,
		submitCh:  make(chan Batch),
		requestCh: make(chan int),
		inputs:    make([]chan Batch, workerCount),
		outputCh:  make(chan output.Batch),
	}
	for i := range e.inputs {
		e.inputs[i] = make(chan Batch)
	}

	if log != nil {
		log.LogEngineStart(workerCount, batchSizeHint)
	}

	e.workers.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go e.runWorker(i)
	}
	go e.coordinate(workerCount)
	go func() {
		e.workers.Wait()
		close(e.outputCh)
	}()

	return e
}

// Submit hands a batch to the engine. It returns ErrClosed once
// Shutdown has been called. Every accepted batch is routed to a worker;
// a batch whose processing panics yields no output batch.
func (e *Engine) Submit(batch Batch) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}

	e.pendingMu.Lock()
	e.pending++
	e.pendingMu.Unlock()

	e.submitCh <- batch
	return nil
}

// NextOutput blocks until the next output batch is available, or
// returns ok=false once every worker has exited and every in-flight
// output has been delivered.
func (e *Engine) NextOutput() (output.Batch, bool) {
	b, ok := <-e.outputCh
	return b, ok
}

// PendingBatches reports the number of batches accepted by Submit but
// not yet handed to a worker by the coordinator.
func (e *Engine) PendingBatches() int {
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()
	return e.pending
}

// Shutdown stops accepting new submissions. Outputs already in flight
// are still delivered; workers drain their current batch, request once
// more, and exit once the coordinator closes their input channel. Safe
// to call more than once.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	close(e.submitCh)
}

// coordinate owns the submission receiver and the request/input
// channel topology. It is the engine's only goroutine that touches
// e.inputs, so no locking is needed around channel sends to workers.
func (e *Engine) coordinate(workerCount int) {
	for batch := range e.submitCh {
		workerID := <-e.requestCh
		e.inputs[workerID] <- batch
		e.pendingMu.Lock()
		e.pending--
		e.pendingMu.Unlock()
	}

	// Submissions are exhausted. Every worker will eventually request
	// again (immediately, if already idle); answer each with a closed
	// channel so it returns.
	for i := 0; i < workerCount; i++ {
		workerID := <-e.requestCh
		close(e.inputs[workerID])
	}
}

func (e *Engine) runWorker(id int) {
	defer e.workers.Done()
	for {
		e.requestCh <- id
		batch, ok := <-e.inputs[id]
		if !ok {
			return
		}

		var pc panics.Catcher
		pc.Try(func() { e.processBatch(batch) })
		if r := pc.Recovered(); r != nil && e.log != nil {
			e.log.LogWorkerPanic(id, r.Value)
		}
	}
}

func (e *Engine) processBatch(refs Batch) {
	compiled := make([]*document.Compiled, 0, len(refs))
	for _, ref := range refs {
		doc, err := e.resolve(ref)
		if err != nil {
			if e.log != nil {
				e.log.LogDocumentSkipped(ref.describe(), err)
			}
			if e.hooks.OnDocumentLoadFailed != nil {
				e.hooks.OnDocumentLoadFailed(ref, err)
			}
			continue
		}
		cd, err := document.Compile(doc)
		if err != nil {
			if e.log != nil {
				e.log.LogDocumentSkipped(ref.describe(), err)
			}
			if e.hooks.OnDocumentCompileFailed != nil {
				e.hooks.OnDocumentCompileFailed(ref, err)
			}
			continue
		}
		if e.hooks.OnDocumentProcessed != nil {
			e.hooks.OnDocumentProcessed()
		}
		compiled = append(compiled, cd)
	}

	var merged output.Batch
	for _, cd := range compiled {
		merged.MergeWith(scanner.ScanGroup(cd, e.group))
	}
	e.outputCh <- merged
}

func (e *Engine) resolve(ref Reference) (document.Document, error) {
	if ref.doc != nil {
		return *ref.doc, nil
	}
	return e.loader.Load(ref.path)
}
