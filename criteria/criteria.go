// Package criteria evaluates an OVAL criteria tree against a single
// package's NEVRA and a system's enabled module streams.
//
// A criteria node is an AND or OR of some mix of module tests, rpminfo
// tests, and child criteria nodes; evaluation recurses down to the leaves
// and combines results bottom-up. Everything here reads a [*ovalcache.Cache]
// built once at startup and never mutates it.
package criteria

import (
	"errors"
	"fmt"

	"github.com/jdobes/vmaas-oval/oval"
	"github.com/jdobes/vmaas-oval/ovalcache"
	"github.com/jdobes/vmaas-oval/rpmver"
)

// ErrUnsupportedOperation is returned when a test's EVR operation or a
// criteria node's operator is a value this evaluator doesn't know about.
var ErrUnsupportedOperation = errors.New("criteria: unsupported operation")

// NEVRA is the package identity a criteria tree is evaluated against:
// a candidate package name resolved to its cache id, plus its EVR and
// architecture.
type NEVRA struct {
	PackageNameID oval.PackageNameID
	EVR           rpmver.EVR
	Arch          string
}

// Engine evaluates criteria trees against a fixed cache.
type Engine struct {
	cache *ovalcache.Cache
}

// New returns an Engine reading from cache.
func New(cache *ovalcache.Cache) *Engine {
	return &Engine{cache: cache}
}

// EvaluateModuleTest reports whether stream "name:stream" for the given
// module test id is among the system's enabled module streams.
func (e *Engine) EvaluateModuleTest(id oval.ModuleTestID, enabledStreams map[string]struct{}) bool {
	stream, ok := e.cache.ModuleTestStream[id]
	if !ok {
		return false
	}
	_, matched := enabledStreams[stream]
	return matched
}

// EvaluateState reports whether a single rpminfo_state matches a candidate
// EVR and architecture.
func (e *Engine) EvaluateState(stateID oval.StateID, state ovalcache.TestState, candidate NEVRA) (bool, error) {
	candidateEVR, ok := e.cache.IDToEVR[state.EVRID]
	if !ok {
		return false, fmt.Errorf("criteria: state %d references unknown evr %d", stateID, state.EVRID)
	}

	var matched bool
	switch state.Operation {
	case oval.OpEquals:
		matched = candidate.EVR.Epoch == candidateEVR.Epoch &&
			candidate.EVR.Version == candidateEVR.Version &&
			candidate.EVR.Release == candidateEVR.Release
	case oval.OpLessThan:
		matched = rpmver.LessEVR(
			rpmver.EVR{Epoch: candidate.EVR.Epoch, Version: candidate.EVR.Version, Release: candidate.EVR.Release},
			rpmver.EVR{Epoch: candidateEVR.Epoch, Version: candidateEVR.Version, Release: candidateEVR.Release},
		)
	default:
		return false, fmt.Errorf("%w: evr_operation=%d", ErrUnsupportedOperation, state.Operation)
	}

	if arches, ok := e.cache.StateToArches[stateID]; ok && len(arches) > 0 {
		archID, known := e.cache.ArchToID[candidate.Arch]
		matched = matched && known && containsArch(arches, archID)
	}
	return matched, nil
}

func containsArch(arches []oval.ArchID, id oval.ArchID) bool {
	lo, hi := 0, len(arches)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case arches[mid] < id:
			lo = mid + 1
		case arches[mid] > id:
			hi = mid
		default:
			return true
		}
	}
	return false
}

// EvaluateTest reports whether an rpminfo_test matches a candidate package.
func (e *Engine) EvaluateTest(id oval.TestID, candidate NEVRA) (bool, error) {
	detail, ok := e.cache.TestDetail[id]
	if !ok {
		return false, fmt.Errorf("criteria: unknown test id %d", id)
	}

	nameMatched := candidate.PackageNameID == detail.PackageNameID

	switch detail.CheckExistence {
	case oval.CheckAtLeastOneExists:
		states := e.cache.TestToStates[id]
		if !nameMatched || len(states) == 0 {
			return nameMatched, nil
		}
		for _, state := range states {
			matched, err := e.EvaluateState(state.StateID, state, candidate)
			if err != nil {
				return false, err
			}
			if matched {
				return true, nil
			}
		}
		return false, nil
	case oval.CheckNoneExist:
		return !nameMatched, nil
	default:
		return false, fmt.Errorf("%w: check_existence=%d", ErrUnsupportedOperation, detail.CheckExistence)
	}
}

// ErrCycle is returned when a criteria tree contains a cycle; such a tree
// indicates corrupt input data and cannot be evaluated.
var ErrCycle = errors.New("criteria: cycle detected in criteria tree")

// EvaluateCriteria recursively evaluates a criteria node: an AND requires
// every module test, test, and child criteria dependency to match; an OR
// requires at least one. Evaluation order is module tests, then tests, then
// child criteria, short-circuiting as soon as the node's outcome is decided.
func (e *Engine) EvaluateCriteria(id oval.CriteriaID, candidate NEVRA, enabledStreams map[string]struct{}) (bool, error) {
	return e.evaluateCriteria(id, candidate, enabledStreams, make(map[oval.CriteriaID]bool))
}

func (e *Engine) evaluateCriteria(id oval.CriteriaID, candidate NEVRA, enabledStreams map[string]struct{}, onStack map[oval.CriteriaID]bool) (bool, error) {
	if onStack[id] {
		return false, fmt.Errorf("%w: criteria id %d", ErrCycle, id)
	}
	onStack[id] = true
	defer delete(onStack, id)

	moduleDeps := e.cache.CriteriaToModuleTests[id]
	testDeps := e.cache.CriteriaToTests[id]
	criteriaDeps := e.cache.CriteriaToChildCriteria[id]

	op, ok := e.cache.CriteriaOperator[id]
	if !ok {
		return false, fmt.Errorf("criteria: unknown criteria id %d", id)
	}

	total := len(moduleDeps) + len(testDeps) + len(criteriaDeps)
	var required int
	var mustMatchAll bool
	switch op {
	case oval.OperatorAND:
		required = total
		mustMatchAll = true
	case oval.OperatorOR:
		if total == 0 {
			// min(1, 0) would be 0, making an empty OR vacuously true; the
			// criteria semantics require an OR with no dependencies to never
			// match.
			return false, nil
		}
		required = 1
	default:
		return false, fmt.Errorf("%w: operator=%d", ErrUnsupportedOperation, op)
	}

	matches := 0

	for _, moduleTestID := range moduleDeps {
		if matches >= required {
			break
		}
		if e.EvaluateModuleTest(moduleTestID, enabledStreams) {
			matches++
		} else if mustMatchAll {
			break
		}
	}

	for _, testID := range testDeps {
		if matches >= required {
			break
		}
		matched, err := e.EvaluateTest(testID, candidate)
		if err != nil {
			return false, err
		}
		if matched {
			matches++
		} else if mustMatchAll {
			break
		}
	}

	for _, childID := range criteriaDeps {
		if matches >= required {
			break
		}
		matched, err := e.evaluateCriteria(childID, candidate, enabledStreams, onStack)
		if err != nil {
			return false, err
		}
		if matched {
			matches++
		} else if mustMatchAll {
			break
		}
	}

	return matches >= required, nil
}

