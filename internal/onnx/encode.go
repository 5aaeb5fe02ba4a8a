package onnx

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers from onnx.proto.
const (
	modelIRVersion    protowire.Number = 1
	modelProducerName protowire.Number = 2
	modelProducerVer  protowire.Number = 3
	modelGraph        protowire.Number = 7
	modelOpsetImport  protowire.Number = 8

	opsetDomain  protowire.Number = 1
	opsetVersion protowire.Number = 2

	graphNode        protowire.Number = 1
	graphName        protowire.Number = 2
	graphInitializer protowire.Number = 5
	graphInput       protowire.Number = 11
	graphOutput      protowire.Number = 12

	nodeInput     protowire.Number = 1
	nodeOutput    protowire.Number = 2
	nodeName      protowire.Number = 3
	nodeOpType    protowire.Number = 4
	nodeAttribute protowire.Number = 5

	attrName protowire.Number = 1
	attrF    protowire.Number = 2
	attrI    protowire.Number = 3
	attrInts protowire.Number = 8
	attrType protowire.Number = 20

	tensorDims      protowire.Number = 1
	tensorDataType  protowire.Number = 2
	tensorFloatData protowire.Number = 4
	tensorName      protowire.Number = 8

	valueName protowire.Number = 1
	valueType protowire.Number = 2

	typeTensor protowire.Number = 1

	tensorTypeElem  protowire.Number = 1
	tensorTypeShape protowire.Number = 2

	shapeDim protowire.Number = 1

	dimValue protowire.Number = 1
)

// AttributeProto.AttributeType values.
const (
	attrTypeFloat = 1
	attrTypeInt   = 2
	attrTypeInts  = 7
)

// TensorProto.DataType FLOAT.
const dataTypeFloat = 1

// Options set model-level metadata.
type Options struct {
	ProducerName    string
	ProducerVersion string
}

// Marshal validates g and encodes it as a serialized ModelProto.
func Marshal(g Graph, opts Options) ([]byte, error) {
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("onnx graph: %w", err)
	}
	out := protowire.AppendTag(nil, modelIRVersion, protowire.VarintType)
	out = protowire.AppendVarint(out, irVersion)
	if opts.ProducerName != "" {
		out = appendString(out, modelProducerName, opts.ProducerName)
	}
	if opts.ProducerVersion != "" {
		out = appendString(out, modelProducerVer, opts.ProducerVersion)
	}
	out = appendMessage(out, modelGraph, encodeGraph(g))

	var opset []byte
	opset = appendString(opset, opsetDomain, "")
	opset = protowire.AppendTag(opset, opsetVersion, protowire.VarintType)
	opset = protowire.AppendVarint(opset, Opset)
	out = appendMessage(out, modelOpsetImport, opset)
	return out, nil
}

func encodeGraph(g Graph) []byte {
	var out []byte
	for _, n := range g.Nodes {
		out = appendMessage(out, graphNode, encodeNode(n))
	}
	out = appendString(out, graphName, g.Name)
	for _, t := range g.Initializers {
		out = appendMessage(out, graphInitializer, encodeTensor(t))
	}
	for _, v := range g.Inputs {
		out = appendMessage(out, graphInput, encodeValueInfo(v))
	}
	for _, v := range g.Outputs {
		out = appendMessage(out, graphOutput, encodeValueInfo(v))
	}
	return out
}

func encodeNode(n Node) []byte {
	var out []byte
	for _, in := range n.Inputs {
		out = appendString(out, nodeInput, in)
	}
	for _, o := range n.Outputs {
		out = appendString(out, nodeOutput, o)
	}
	out = appendString(out, nodeName, n.Name)
	out = appendString(out, nodeOpType, n.OpType)
	for _, a := range n.Attributes {
		out = appendMessage(out, nodeAttribute, encodeAttribute(a))
	}
	return out
}

func encodeAttribute(a Attribute) []byte {
	out := appendString(nil, attrName, a.Name)
	switch a.Kind {
	case AttrInt:
		out = protowire.AppendTag(out, attrI, protowire.VarintType)
		out = protowire.AppendVarint(out, uint64(a.Int))
		out = appendEnum(out, attrType, attrTypeInt)
	case AttrInts:
		out = appendPackedInts(out, attrInts, a.Ints)
		out = appendEnum(out, attrType, attrTypeInts)
	case AttrFloat:
		out = protowire.AppendTag(out, attrF, protowire.Fixed32Type)
		out = protowire.AppendFixed32(out, math.Float32bits(a.Float))
		out = appendEnum(out, attrType, attrTypeFloat)
	}
	return out
}

func encodeTensor(t Tensor) []byte {
	out := appendPackedInts(nil, tensorDims, t.Dims)
	out = appendEnum(out, tensorDataType, dataTypeFloat)
	if len(t.Data) > 0 {
		payload := make([]byte, 0, 4*len(t.Data))
		for _, v := range t.Data {
			payload = protowire.AppendFixed32(payload, math.Float32bits(v))
		}
		out = protowire.AppendTag(out, tensorFloatData, protowire.BytesType)
		out = protowire.AppendBytes(out, payload)
	}
	out = appendString(out, tensorName, t.Name)
	return out
}

func encodeValueInfo(v ValueInfo) []byte {
	var shape []byte
	for _, d := range v.Shape {
		var dim []byte
		dim = protowire.AppendTag(dim, dimValue, protowire.VarintType)
		dim = protowire.AppendVarint(dim, uint64(d))
		shape = appendMessage(shape, shapeDim, dim)
	}
	tensorType := appendEnum(nil, tensorTypeElem, dataTypeFloat)
	tensorType = appendMessage(tensorType, tensorTypeShape, shape)
	typeProto := appendMessage(nil, typeTensor, tensorType)

	out := appendString(nil, valueName, v.Name)
	out = appendMessage(out, valueType, typeProto)
	return out
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func appendEnum(b []byte, num protowire.Number, v int) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

func appendPackedInts(b []byte, num protowire.Number, values []int64) []byte {
	if len(values) == 0 {
		return b
	}
	var payload []byte
	for _, v := range values {
		payload = protowire.AppendVarint(payload, uint64(v))
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, payload)
}
