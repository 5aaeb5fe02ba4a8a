package onnx

import "fmt"

// Opset is the default-domain operator set version the encoder targets.
// ReduceMean and ReduceMax still take their axes as attributes at 13.
const Opset = 13

// irVersion matches opset 13.
const irVersion = 7

// Graph is a minimal, float-only ONNX graph description.
type Graph struct {
	Name         string
	Nodes        []Node
	Initializers []Tensor
	Inputs       []ValueInfo
	Outputs      []ValueInfo
}

// Node is one operator application.
type Node struct {
	Name       string
	OpType     string
	Inputs     []string
	Outputs    []string
	Attributes []Attribute
}

// AttributeKind enumerates the attribute encodings the encoder supports.
type AttributeKind int

const (
	AttrInt AttributeKind = iota
	AttrInts
	AttrFloat
)

// Attribute is a named scalar or list parameter of a node.
type Attribute struct {
	Name  string
	Kind  AttributeKind
	Int   int64
	Ints  []int64
	Float float32
}

// IntAttr builds an integer attribute.
func IntAttr(name string, v int64) Attribute { return Attribute{Name: name, Kind: AttrInt, Int: v} }

// IntsAttr builds an integer list attribute.
func IntsAttr(name string, v ...int64) Attribute {
	return Attribute{Name: name, Kind: AttrInts, Ints: v}
}

// FloatAttr builds a float attribute.
func FloatAttr(name string, v float32) Attribute {
	return Attribute{Name: name, Kind: AttrFloat, Float: v}
}

// Tensor is a named float32 constant.
type Tensor struct {
	Name string
	Dims []int64
	Data []float32
}

// ValueInfo declares a graph input or output with a static float shape.
type ValueInfo struct {
	Name  string
	Shape []int64
}

// Validate checks that every node input is produced by a graph input, an
// initializer, or an earlier node, and that tensor sizes match their dims.
func (g Graph) Validate() error {
	known := make(map[string]bool)
	for _, in := range g.Inputs {
		known[in.Name] = true
	}
	for _, init := range g.Initializers {
		size := int64(1)
		for _, d := range init.Dims {
			size *= d
		}
		if size != int64(len(init.Data)) {
			return fmt.Errorf("initializer %s: dims %v hold %d values, have %d", init.Name, init.Dims, size, len(init.Data))
		}
		known[init.Name] = true
	}
	for _, node := range g.Nodes {
		if node.OpType == "" {
			return fmt.Errorf("node %s: missing op type", node.Name)
		}
		for _, in := range node.Inputs {
			if !known[in] {
				return fmt.Errorf("node %s: input %s is not defined before use", node.Name, in)
			}
		}
		for _, out := range node.Outputs {
			known[out] = true
		}
	}
	for _, out := range g.Outputs {
		if !known[out.Name] {
			return fmt.Errorf("graph output %s is never produced", out.Name)
		}
	}
	if len(g.Inputs) == 0 || len(g.Outputs) == 0 {
		return fmt.Errorf("graph needs at least one input and one output")
	}
	return nil
}
