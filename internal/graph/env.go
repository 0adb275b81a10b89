package graph

import (
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/hashicorp/go-hclog"

	"opgraph/internal/compute"
	"opgraph/internal/trace"
)

// Engine is the part of a compute channel the graph and its operations use.
// *compute.Channel satisfies it.
type Engine interface {
	Execute(stmt string) (string, error)
	ExecuteSave(stmt string) (string, error)
	ExecuteFloat(stmt string) (float64, error)
	ExecuteFloats(stmt string) ([]float64, error)
	ExecuteString(stmt string) (string, error)
	ExecuteStrings(stmt string) ([]string, error)
	ExecuteBool(stmt string) (bool, error)
	SetVariable(name string, value any) error
	LoadLibrary(name string) (bool, error)
	StartGraphicOutput() (string, error)
	StopGraphicOutput() error
	SetRecordMode(mode compute.RecordMode) compute.RecordMode
	FetchInteraction() string
}

var _ Engine = (*compute.Channel)(nil)

// Env carries what every node in a session shares: the engine, the operation
// registry, the logger and the trace sink. It also hands out node IDs.
//
// An Env is not safe for concurrent use. Serialize graph access externally.
type Env struct {
	Engine   Engine
	Registry *Registry
	Logger   hclog.Logger
	Trace    trace.Sink

	mu     sync.Mutex
	nextID int
}

// NewEnv returns an environment. A nil logger discards output.
func NewEnv(engine Engine, reg *Registry, logger hclog.Logger) *Env {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if reg == nil {
		reg = NewRegistry()
	}
	return &Env{
		Engine:   engine,
		Registry: reg,
		Logger:   logger,
		Trace:    trace.NopSink{},
	}
}

// ReplaceEngine swaps the engine, closing the previous one when it can be
// closed. Used after the channel dies.
func (e *Env) ReplaceEngine(engine Engine) error {
	old := e.Engine
	e.Engine = engine
	if c, ok := old.(io.Closer); ok && old != engine {
		return c.Close()
	}
	return nil
}

// Close closes the engine if it can be closed.
func (e *Env) Close() error {
	if c, ok := e.Engine.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// NewOperation creates an unattached operation of the registered type name.
func (e *Env) NewOperation(name string) (*Operation, error) {
	factory, _, ok := e.Registry.Lookup(name)
	if !ok {
		return nil, structuralf(ErrUnknownOperation, "%q", name)
	}
	op := newOperation(e, name, factory(), e.allocateID())
	if err := op.computer.Configure(op); err != nil {
		return nil, fmt.Errorf("configuring %s: %w", name, err)
	}
	op.checkDisplayName()
	return op, nil
}

// NewDataSet creates an empty dataset outside any problem.
func (e *Env) NewDataSet(name string) *DataSet {
	return newDataSet(e, name, e.allocateID())
}

func (e *Env) allocateID() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	return e.nextID
}

// reserveID makes sure restored IDs are never handed out again.
func (e *Env) reserveID(id int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if id > e.nextID {
		e.nextID = id
	}
}

func (e *Env) record(ev trace.Event) {
	if e.Trace == nil {
		return
	}
	trace.SafeRecord(e.Trace, ev)
}

func nodeKey(id int) string { return strconv.Itoa(id) }
