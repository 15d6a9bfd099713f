package tree

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrPipelinePanic wraps a panic recovered while processing.
var ErrPipelinePanic = errors.New("tree pipeline panicked")

// Observer receives one observation per pipeline run. *metrics.Metrics satisfies it.
type Observer interface {
	ObserveTreeProcess(outcome string, duration time.Duration)
}

const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
	OutcomePanic = "panic"
)

// Processor runs the reconciliation pipeline against a fixed baseline tree.
// It holds no mutable state and is safe for concurrent use.
type Processor struct {
	log      zerolog.Logger
	baseline []*Node
	obs      Observer
}

// NewProcessor copies baseline; a nil baseline selects the built-in default tree.
func NewProcessor(log zerolog.Logger, baseline []*Node, obs Observer) *Processor {
	if baseline == nil {
		baseline = DefaultTree()
	} else {
		baseline = CloneAll(baseline)
	}
	return &Processor{log: log, baseline: baseline, obs: obs}
}

// Baseline returns a copy of the processor's baseline tree.
func (p *Processor) Baseline() []*Node {
	return CloneAll(p.baseline)
}

// Process runs the pipeline and reports failures as errors.
//
// Malformed tree or devices JSON is logged and treated as absent; it is not an error.
// Errors are limited to structural failures of the user tree or the device links
// (ErrCyclicStructure, ErrTreeTooDeep) and recovered panics (ErrPipelinePanic).
func (p *Processor) Process(treeJSON, devicesJSON string) (nodes []*Node, err error) {
	start := time.Now()
	outcome := OutcomeOK
	defer func() {
		if r := recover(); r != nil {
			nodes = nil
			err = fmt.Errorf("%w: %v", ErrPipelinePanic, r)
			outcome = OutcomePanic
		} else if err != nil {
			outcome = OutcomeError
		}
		if p.obs != nil {
			p.obs.ObserveTreeProcess(outcome, time.Since(start))
		}
	}()

	result := CloneAll(p.baseline)

	treeRecords := p.decode("tree", treeJSON)
	deviceRecords := p.decode("devices", devicesJSON)

	if len(treeRecords) > 0 {
		in := ClassifyTreeInput(treeRecords)
		overlay, buildErr := in.Nodes()
		if buildErr != nil {
			return nil, fmt.Errorf("build %s user tree: %w", in.Kind, buildErr)
		}
		result = MergeUserIntoDefault(result, overlay)
	}

	if len(deviceRecords) > 0 {
		grafted, graftErr := GraftDevices(result, DevicesFromRecords(deviceRecords))
		if graftErr != nil {
			return nil, fmt.Errorf("graft devices: %w", graftErr)
		}
		result = grafted
	}

	return Normalize(result), nil
}

// ProcessTreeData runs the pipeline and never fails: any error yields an empty tree.
func (p *Processor) ProcessTreeData(treeJSON, devicesJSON string) []*Node {
	nodes, err := p.Process(treeJSON, devicesJSON)
	if err != nil {
		p.log.Error().Err(err).Msg("tree processing failed")
		return []*Node{}
	}
	return nodes
}

func (p *Processor) decode(name, input string) []Record {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	records, err := DecodeRecords(input)
	if err != nil {
		p.log.Warn().Err(err).Str("input", name).Int("bytes", len(input)).Msg("ignoring malformed json input")
		return nil
	}
	return records
}

var defaultProcessor = NewProcessor(zerolog.Nop(), nil, nil)

// ProcessTreeData runs the pipeline against the built-in default tree. Empty strings
// stand for absent inputs.
func ProcessTreeData(treeJSON, devicesJSON string) []*Node {
	return defaultProcessor.ProcessTreeData(treeJSON, devicesJSON)
}
