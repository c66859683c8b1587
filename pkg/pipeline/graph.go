// Package pipeline runs the visualization as an explicit graph of named
// stages. Every stage declares the stages it reads from and is computed at
// most once, on demand, when something downstream materializes it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

// RunFunc computes a stage from the outputs of its inputs, in declaration order
type RunFunc func(ctx context.Context, inputs []any) (any, error)

// Stage is a node of the graph
type Stage struct {
	Name   string
	Inputs []string
	Run    RunFunc
}

// ValidationError describes a structural problem of the graph
type ValidationError struct {
	Stage   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Stage == "" {
		return e.Message
	}
	return fmt.Sprintf("stage %q: %s", e.Stage, e.Message)
}

// ErrUnknownStage is returned when materializing a name that was never added
var ErrUnknownStage = errors.New("unknown stage")

// Graph holds stages and their memoized outputs. It is not safe for
// concurrent use.
type Graph struct {
	// Verbose prints the duration of every computed stage
	Verbose bool

	stages  map[string]*Stage
	names   []string
	outputs map[string]any
}

// New creates an empty graph
func New() *Graph {
	return &Graph{
		stages:  make(map[string]*Stage),
		outputs: make(map[string]any),
	}
}

// Add registers a stage. Inputs may name stages added later; they are
// checked by Validate.
func (g *Graph) Add(name string, inputs []string, run RunFunc) error {
	if name == "" {
		return fmt.Errorf("stage name must not be empty")
	}
	if run == nil {
		return ValidationError{Stage: name, Message: "stage has no run function"}
	}
	if _, ok := g.stages[name]; ok {
		return ValidationError{Stage: name, Message: "duplicate stage"}
	}
	g.stages[name] = &Stage{Name: name, Inputs: append([]string(nil), inputs...), Run: run}
	g.names = append(g.names, name)
	return nil
}

// Stages returns the stage names in the order they were added
func (g *Graph) Stages() []string {
	return append([]string(nil), g.names...)
}

// Validate checks that every input refers to a known stage and that the
// graph has no cycles. The result is empty for a valid graph.
func (g *Graph) Validate() []ValidationError {
	var errs []ValidationError
	for _, name := range g.names {
		s := g.stages[name]
		missing := lo.Filter(s.Inputs, func(in string, _ int) bool {
			_, ok := g.stages[in]
			return !ok
		})
		for _, in := range missing {
			errs = append(errs, ValidationError{Stage: name, Message: fmt.Sprintf("input %q does not exist", in)})
		}
		for _, in := range lo.FindDuplicates(s.Inputs) {
			errs = append(errs, ValidationError{Stage: name, Message: fmt.Sprintf("input %q listed twice", in)})
		}
	}
	if _, err := g.Order(); err != nil {
		var verr ValidationError
		if errors.As(err, &verr) {
			errs = append(errs, verr)
		}
	}
	return errs
}

// Order returns every stage after all of its inputs. Ties keep the order in
// which stages were added. Unknown inputs are ignored here.
func (g *Graph) Order() ([]string, error) {
	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(g.stages))
	order := make([]string, 0, len(g.stages))
	var path []string

	var visit func(name string) error
	visit = func(name string) error {
		s, ok := g.stages[name]
		if !ok {
			return nil
		}
		switch color[name] {
		case black:
			return nil
		case gray:
			start := lo.IndexOf(path, name)
			cycle := append(append([]string(nil), path[start:]...), name)
			return ValidationError{Stage: name, Message: "cycle detected: " + strings.Join(cycle, " -> ")}
		}

		color[name] = gray
		path = append(path, name)
		for _, in := range s.Inputs {
			if err := visit(in); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		color[name] = black
		order = append(order, name)
		return nil
	}

	for _, name := range g.names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// Materialize returns the output of the named stage, computing it and any
// missing inputs first. Outputs are kept, so each stage runs at most once.
func (g *Graph) Materialize(ctx context.Context, name string) (any, error) {
	if _, ok := g.stages[name]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStage, name)
	}
	if errs := g.Validate(); len(errs) > 0 {
		return nil, errs[0]
	}
	return g.materialize(ctx, name)
}

func (g *Graph) materialize(ctx context.Context, name string) (any, error) {
	if out, ok := g.outputs[name]; ok {
		return out, nil
	}
	s := g.stages[name]

	inputs := make([]any, len(s.Inputs))
	for i, in := range s.Inputs {
		out, err := g.materialize(ctx, in)
		if err != nil {
			return nil, err
		}
		inputs[i] = out
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("stage %q not started: %w", name, err)
	}
	start := time.Now()
	out, err := s.Run(ctx, inputs)
	if err != nil {
		return nil, fmt.Errorf("stage %q failed: %w", name, err)
	}
	if g.Verbose {
		fmt.Printf("- %s: %.2f seconds\n", name, time.Since(start).Seconds())
	}
	g.outputs[name] = out
	return out, nil
}

// MaterializeAll computes every stage in dependency order
func (g *Graph) MaterializeAll(ctx context.Context) error {
	if errs := g.Validate(); len(errs) > 0 {
		return errs[0]
	}
	order, err := g.Order()
	if err != nil {
		return err
	}
	for _, name := range order {
		if _, err := g.materialize(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// Output returns the stored output of a stage that has been materialized
func (g *Graph) Output(name string) (any, bool) {
	out, ok := g.outputs[name]
	return out, ok
}

// Reset drops all stored outputs
func (g *Graph) Reset() {
	clear(g.outputs)
}

// Get materializes name and returns its output as a T
func Get[T any](ctx context.Context, g *Graph, name string) (T, error) {
	var zero T
	out, err := g.Materialize(ctx, name)
	if err != nil {
		return zero, err
	}
	v, ok := out.(T)
	if !ok {
		return zero, fmt.Errorf("stage %q produced %T, want %T", name, out, zero)
	}
	return v, nil
}

// input converts the i-th input of a stage to T
func input[T any](inputs []any, i int) (T, error) {
	var zero T
	if i >= len(inputs) {
		return zero, fmt.Errorf("missing input %d", i)
	}
	v, ok := inputs[i].(T)
	if !ok {
		return zero, fmt.Errorf("input %d is %T, want %T", i, inputs[i], zero)
	}
	return v, nil
}
