// Package workflow builds a static dependency graph of node functions and
// runs it concurrently over a future.Executor, every node function backed
// by a Future and the results of all nodes joined with combinator.All. It is not
// part of the core runtime in spec.md; it is a rebuild of a DAG executor
// that, in the teacher repo, already sat directly on top of future and
// future/executors — once those packages took on this module's semantics,
// the DAG executor needed the same rebuild to keep compiling against them,
// and it is kept here as the runtime's one "real consumer" of the full
// combinator set at once (Launch, Then, All).
package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/wrenfield/asyncrt/combinator"
	pkgerrors "github.com/wrenfield/asyncrt/errors"
	"github.com/wrenfield/asyncrt/future"
)

var (
	ErrNodeExists      = errors.New("workflow: node already exists")
	ErrGraphFrozen     = errors.New("workflow: graph is frozen")
	ErrGraphNotFrozen  = errors.New("workflow: graph is not frozen")
	ErrGraphIncomplete = errors.New("workflow: graph is incomplete")
	ErrGraphCyclic     = errors.New("workflow: graph has a cycle")
	// ErrNodeSkipped marks a node that was never run because a dependency failed.
	ErrNodeSkipped = errors.New("workflow: node was skipped")
)

type NodeID string

type NodeFunc func(ctx context.Context, deps map[NodeID]any) (any, error)

type NodeFuncInterceptor func(next NodeFunc) NodeFunc

type Node interface {
	ID() NodeID
	Deps() []NodeID
}

type BaseNode struct {
	id   NodeID
	deps []NodeID
}

func (n *BaseNode) ID() NodeID     { return n.id }
func (n *BaseNode) Deps() []NodeID { return n.deps }

type entryNode struct {
	BaseNode
}

type simpleNode struct {
	BaseNode
	run NodeFunc
}

type subGraphNode struct {
	BaseNode
	sub           *Graph
	inputMapping  func(map[NodeID]any) any
	outputMapping func(map[NodeID]any) any
}

// Graph is a set of NodeFuncs wired together by declared dependencies. It
// is built up with AddNode/AddSubGraph, validated once with Freeze, and
// then instantiated as many times as needed — the Graph itself holds no
// per-run state.
type Graph struct {
	entry  NodeID
	nodes  map[NodeID]Node
	frozen bool
}

// NewGraph creates a Graph whose single input feeds the node named entry.
func NewGraph(entry NodeID) *Graph {
	g := &Graph{nodes: make(map[NodeID]Node), entry: entry}
	g.nodes[entry] = &entryNode{BaseNode: BaseNode{id: entry}}
	return g
}

// AddNode adds a node that runs fn once every id in deps has completed.
func (g *Graph) AddNode(id NodeID, deps []NodeID, fn NodeFunc) error {
	if g.frozen {
		return ErrGraphFrozen
	}
	if _, exists := g.nodes[id]; exists {
		return ErrNodeExists
	}
	g.nodes[id] = &simpleNode{BaseNode: BaseNode{id: id, deps: deps}, run: fn}
	return nil
}

// AddSubGraph embeds sub as a single node: inputMapping builds sub's entry
// input from this graph's dependency results, and outputMapping builds
// this node's output from sub's node results. Either mapping may be nil,
// in which case the dependency map (respectively, the result map) is
// passed through unchanged.
func (g *Graph) AddSubGraph(
	id NodeID, deps []NodeID, sub *Graph,
	inputMapping func(map[NodeID]any) any,
	outputMapping func(map[NodeID]any) any,
) error {
	if g.frozen {
		return ErrGraphFrozen
	}
	if _, exists := g.nodes[id]; exists {
		return ErrNodeExists
	}
	g.nodes[id] = &subGraphNode{
		BaseNode:      BaseNode{id: id, deps: deps},
		sub:           sub,
		inputMapping:  inputMapping,
		outputMapping: outputMapping,
	}
	return nil
}

// Freeze validates the graph (every dependency exists, no cycle) and marks
// it immutable. A graph must be frozen before it can be instantiated.
func (g *Graph) Freeze() error {
	if g.frozen {
		return ErrGraphFrozen
	}
	if err := g.checkComplete(); err != nil {
		return err
	}
	if err := g.checkCycle(); err != nil {
		return err
	}
	g.frozen = true
	for _, node := range g.nodes {
		if sg, ok := node.(*subGraphNode); ok {
			if err := sg.sub.Freeze(); err != nil {
				return pkgerrors.Errorf("workflow: freeze node %s: %w", sg.ID(), err)
			}
		}
	}
	return nil
}

func (g *Graph) checkComplete() error {
	for id, node := range g.nodes {
		for _, dep := range node.Deps() {
			if _, ok := g.nodes[dep]; !ok {
				return pkgerrors.Errorf("workflow: node %s depends on missing node %s: %w", id, dep, ErrGraphIncomplete)
			}
		}
	}
	return nil
}

func (g *Graph) checkCycle() error {
	inDegree := make(map[NodeID]int, len(g.nodes))
	children := make(map[NodeID][]NodeID, len(g.nodes))
	queue := make([]NodeID, 0, len(g.nodes))

	for id, node := range g.nodes {
		inDegree[id] = len(node.Deps())
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
		for _, dep := range node.Deps() {
			children[dep] = append(children[dep], id)
		}
	}

	visited := 0
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		visited++
		for _, v := range children[u] {
			inDegree[v]--
			if inDegree[v] == 0 {
				queue = append(queue, v)
			}
		}
	}
	if visited != len(g.nodes) {
		return ErrGraphCyclic
	}
	return nil
}

// ToMermaid renders a frozen graph as a Mermaid flowchart, recursing into
// subgraphs as Mermaid subgraph blocks. It returns "" if the graph isn't
// frozen yet.
func (g *Graph) ToMermaid() string {
	if !g.frozen {
		return ""
	}
	var b strings.Builder
	b.WriteString("graph LR\n")
	g.toMermaid(&b, "", "\t")
	return b.String()
}

func (g *Graph) toMermaid(b *strings.Builder, prefix, indent string) {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)

	for _, id := range ids {
		label := prefix + id
		switch n := g.nodes[NodeID(id)].(type) {
		case *entryNode:
			fmt.Fprintf(b, "%s%s[%q]\n", indent, label, label)
		case *simpleNode:
			fmt.Fprintf(b, "%s%s((%q))\n", indent, label, label)
		case *subGraphNode:
			fmt.Fprintf(b, "%ssubgraph %s\n", indent, label)
			n.sub.toMermaid(b, label+".", indent+"\t")
			fmt.Fprintf(b, "%send\n", indent)
		}
	}
	for _, id := range ids {
		node := g.nodes[NodeID(id)]
		for _, dep := range node.Deps() {
			fmt.Fprintf(b, "%s%s --> %s\n", indent, prefix+string(dep), prefix+id)
		}
	}
}

type instantiateOptions struct {
	executor     future.Executor
	interceptors []NodeFuncInterceptor
	nodeResults  map[NodeID]any
}

type InstantiateOption func(*instantiateOptions)

// WithExecutor sets the future.Executor every node body runs on. Required:
// unlike the teacher's version, there is no package-level default executor
// (see future.Executor's doc comment for why).
func WithExecutor(ex future.Executor) InstantiateOption {
	return func(o *instantiateOptions) { o.executor = ex }
}

// WithNodeFuncInterceptor wraps every node's run function, innermost
// registration running closest to the node. Useful for logging or timing
// around node execution.
func WithNodeFuncInterceptor(interceptor NodeFuncInterceptor) InstantiateOption {
	return func(o *instantiateOptions) { o.interceptors = append(o.interceptors, interceptor) }
}

// WithNodeResults preseeds specific node IDs with a result, skipping their
// run function entirely. Downstream nodes still run normally.
func WithNodeResults(results map[NodeID]any) InstantiateOption {
	return func(o *instantiateOptions) { o.nodeResults = results }
}

// Instantiate creates a runnable Instance of g, seeded with input at the
// entry node. g must already be frozen.
func (g *Graph) Instantiate(input any, opts ...InstantiateOption) (*Instance, error) {
	if !g.frozen {
		return nil, ErrGraphNotFrozen
	}

	options := &instantiateOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if options.executor == nil {
		return nil, pkgerrors.Errorf("workflow: Instantiate requires WithExecutor")
	}

	results := map[NodeID]any{g.entry: input}
	for id, r := range options.nodeResults {
		results[id] = r
	}

	nodes := make(map[NodeID]*nodeInstance, len(g.nodes))
	children := make(map[NodeID][]NodeID, len(g.nodes))
	for id, spec := range g.nodes {
		promise := future.NewPromise[any]()
		ni := &nodeInstance{
			spec:    spec,
			promise: promise,
			result:  promise.Future(),
		}
		ni.pending.Store(int32(len(spec.Deps())))

		run := g.buildRunFunc(spec, results, opts, ni)
		for i := len(options.interceptors) - 1; i >= 0; i-- {
			run = options.interceptors[i](run)
		}
		ni.run = run

		nodes[id] = ni
		for _, dep := range spec.Deps() {
			children[dep] = append(children[dep], id)
		}
	}
	for id, ni := range nodes {
		ni.children = children[id]
	}

	return &Instance{graph: g, nodes: nodes, executor: options.executor}, nil
}

func (g *Graph) buildRunFunc(spec Node, results map[NodeID]any, opts []InstantiateOption, ni *nodeInstance) NodeFunc {
	if result, ok := results[spec.ID()]; ok {
		return func(context.Context, map[NodeID]any) (any, error) { return result, nil }
	}

	switch n := spec.(type) {
	case *entryNode:
		return func(context.Context, map[NodeID]any) (any, error) { return results[n.ID()], nil }
	case *simpleNode:
		return n.run
	case *subGraphNode:
		return func(ctx context.Context, deps map[NodeID]any) (any, error) {
			var input any = deps
			if n.inputMapping != nil {
				input = n.inputMapping(deps)
			}
			instance, err := n.sub.Instantiate(input, opts...)
			if err != nil {
				return nil, pkgerrors.Errorf("workflow: instantiate subgraph %s: %w", n.ID(), err)
			}
			subResults, err := instance.Run(ctx)
			if err != nil {
				return nil, pkgerrors.Errorf("workflow: run subgraph %s: %w", n.ID(), err)
			}
			var output any = subResults
			if n.outputMapping != nil {
				output = n.outputMapping(subResults)
			}
			return output, nil
		}
	default:
		panic("workflow: unknown node type")
	}
}

type nodeInstance struct {
	spec     Node
	children []NodeID
	pending  atomic.Int32
	run      NodeFunc
	promise  *future.Promise[any]
	result   *future.Future[any]
}

// Instance is a single run of a Graph, seeded with one input value.
type Instance struct {
	graph    *Graph
	nodes    map[NodeID]*nodeInstance
	executor future.Executor
}

// Run blocks until every reachable node has settled and returns each
// node's result keyed by ID, or the first error encountered.
func (in *Instance) Run(ctx context.Context) (map[NodeID]any, error) {
	return in.RunAsync(ctx).Get()
}

// RunAsync is Run without blocking the caller.
func (in *Instance) RunAsync(ctx context.Context) *future.Future[map[NodeID]any] {
	in.schedule(ctx, in.graph.entry)

	futures := make([]*future.Future[any], 0, len(in.nodes))
	for _, ni := range in.nodes {
		futures = append(futures, ni.result)
	}

	return combinator.Then(in.executor, combinator.All(futures...), func([]any) (map[NodeID]any, error) {
		results := make(map[NodeID]any, len(in.nodes))
		for id, ni := range in.nodes {
			val, err := ni.result.Get()
			if err != nil {
				if errors.Is(err, ErrNodeSkipped) {
					continue
				}
				return nil, pkgerrors.Errorf("workflow: node %s: %w", id, err)
			}
			results[id] = val
		}
		return results, nil
	})
}

// schedule runs id's node once its dependencies have all settled, and
// recursively schedules every child whose last pending dependency this
// call just resolved.
func (in *Instance) schedule(ctx context.Context, id NodeID) {
	ni := in.nodes[id]
	combinator.Launch(in.executor, func() (any, error) {
		deps := make(map[NodeID]any, len(ni.spec.Deps()))
		for _, depID := range ni.spec.Deps() {
			v, err := in.nodes[depID].result.Get()
			if err != nil {
				if errors.Is(err, ErrNodeSkipped) {
					return nil, ErrNodeSkipped
				}
				return nil, pkgerrors.Errorf("%w: dependency %s: %w", ErrNodeSkipped, depID, err)
			}
			deps[depID] = v
		}
		val, err := ni.run(ctx, deps)
		for _, childID := range ni.children {
			if in.nodes[childID].pending.Add(-1) == 0 {
				in.schedule(ctx, childID)
			}
		}
		return val, err
	}).Subscribe(func(val any, err error) {
		ni.promise.Set(val, err)
	})
}
