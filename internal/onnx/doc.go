// Package onnx encodes small float32 inference graphs as ONNX ModelProto
// bytes so trained models can run in any ONNX runtime. Only the message
// fields the exported graphs need are written.
package onnx
