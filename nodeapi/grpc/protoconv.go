package grpc

import (
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/maxpoletaev/gridclient/nodeapi"
)

func encodeBytes(b []byte) *structpb.Value {
	return structpb.NewStringValue(base64.StdEncoding.EncodeToString(b))
}

func decodeBytes(v *structpb.Value) ([]byte, error) {
	if v.GetStringValue() == "" {
		return nil, nil
	}

	b, err := base64.StdEncoding.DecodeString(v.GetStringValue())
	if err != nil {
		return nil, fmt.Errorf("invalid bytes value: %w", err)
	}

	return b, nil
}

func decodeUUID(s *structpb.Struct, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(s.GetFields()[field].GetStringValue())
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %w", field, err)
	}

	return id, nil
}

func stringList(values []string) *structpb.Value {
	list := make([]*structpb.Value, len(values))
	for i, v := range values {
		list[i] = structpb.NewStringValue(v)
	}

	return structpb.NewListValue(&structpb.ListValue{Values: list})
}

func fromStringList(v *structpb.Value) []string {
	values := v.GetListValue().GetValues()
	if len(values) == 0 {
		return nil
	}

	res := make([]string, len(values))
	for i, v := range values {
		res[i] = v.GetStringValue()
	}

	return res
}

func ToProtoTopologyRequest(req *nodeapi.TopologyRequest) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"requestId":         structpb.NewStringValue(req.RequestID.String()),
			"clientId":          structpb.NewStringValue(req.ClientID.String()),
			"includeAttributes": structpb.NewBoolValue(req.IncludeAttributes),
			"includeMetrics":    structpb.NewBoolValue(req.IncludeMetrics),
		},
	}
}

func FromProtoTopologyRequest(s *structpb.Struct) (*nodeapi.TopologyRequest, error) {
	requestID, err := decodeUUID(s, "requestId")
	if err != nil {
		return nil, err
	}

	clientID, err := decodeUUID(s, "clientId")
	if err != nil {
		return nil, err
	}

	return &nodeapi.TopologyRequest{
		RequestID:         requestID,
		ClientID:          clientID,
		IncludeAttributes: s.GetFields()["includeAttributes"].GetBoolValue(),
		IncludeMetrics:    s.GetFields()["includeMetrics"].GetBoolValue(),
	}, nil
}

func ToProtoNode(node *nodeapi.NodeInfo) *structpb.Struct {
	fields := map[string]*structpb.Value{
		"id":    structpb.NewStringValue(node.ID.String()),
		"addrs": stringList(node.Addrs),
	}

	if len(node.Attributes) > 0 {
		attrs := make(map[string]*structpb.Value, len(node.Attributes))
		for k, v := range node.Attributes {
			attrs[k] = structpb.NewStringValue(v)
		}

		fields["attributes"] = structpb.NewStructValue(&structpb.Struct{Fields: attrs})
	}

	if len(node.Metrics) > 0 {
		metrics := make(map[string]*structpb.Value, len(node.Metrics))
		for k, v := range node.Metrics {
			metrics[k] = structpb.NewNumberValue(v)
		}

		fields["metrics"] = structpb.NewStructValue(&structpb.Struct{Fields: metrics})
	}

	return &structpb.Struct{Fields: fields}
}

func FromProtoNode(s *structpb.Struct) (nodeapi.NodeInfo, error) {
	id, err := decodeUUID(s, "id")
	if err != nil {
		return nodeapi.NodeInfo{}, err
	}

	node := nodeapi.NodeInfo{
		ID:    id,
		Addrs: fromStringList(s.GetFields()["addrs"]),
	}

	if attrs := s.GetFields()["attributes"].GetStructValue().GetFields(); len(attrs) > 0 {
		node.Attributes = make(map[string]string, len(attrs))
		for k, v := range attrs {
			node.Attributes[k] = v.GetStringValue()
		}
	}

	if metrics := s.GetFields()["metrics"].GetStructValue().GetFields(); len(metrics) > 0 {
		node.Metrics = make(map[string]float64, len(metrics))
		for k, v := range metrics {
			node.Metrics[k] = v.GetNumberValue()
		}
	}

	return node, nil
}

func ToProtoTopologyResult(res *nodeapi.TopologyResult) *structpb.Struct {
	nodes := make([]*structpb.Value, len(res.Nodes))
	for i := range res.Nodes {
		nodes[i] = structpb.NewStructValue(ToProtoNode(&res.Nodes[i]))
	}

	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"nodes": structpb.NewListValue(&structpb.ListValue{Values: nodes}),
		},
	}
}

func FromProtoTopologyResult(s *structpb.Struct) (*nodeapi.TopologyResult, error) {
	values := s.GetFields()["nodes"].GetListValue().GetValues()
	nodes := make([]nodeapi.NodeInfo, len(values))

	for i, v := range values {
		node, err := FromProtoNode(v.GetStructValue())
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}

		nodes[i] = node
	}

	return &nodeapi.TopologyResult{Nodes: nodes}, nil
}

var cacheOpNames = map[string]nodeapi.CacheOp{
	nodeapi.CacheGet.String():    nodeapi.CacheGet,
	nodeapi.CachePut.String():    nodeapi.CachePut,
	nodeapi.CacheRemove.String(): nodeapi.CacheRemove,
}

func ToProtoCacheRequest(req *nodeapi.CacheRequest) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"requestId": structpb.NewStringValue(req.RequestID.String()),
			"clientId":  structpb.NewStringValue(req.ClientID.String()),
			"cacheName": structpb.NewStringValue(req.CacheName),
			"op":        structpb.NewStringValue(req.Op.String()),
			"key":       structpb.NewStringValue(req.Key),
			"value":     encodeBytes(req.Value),
			"flags":     stringList(req.Flags),
		},
	}
}

func FromProtoCacheRequest(s *structpb.Struct) (*nodeapi.CacheRequest, error) {
	requestID, err := decodeUUID(s, "requestId")
	if err != nil {
		return nil, err
	}

	clientID, err := decodeUUID(s, "clientId")
	if err != nil {
		return nil, err
	}

	fields := s.GetFields()

	op, ok := cacheOpNames[fields["op"].GetStringValue()]
	if !ok {
		return nil, fmt.Errorf("unknown cache operation: %q", fields["op"].GetStringValue())
	}

	value, err := decodeBytes(fields["value"])
	if err != nil {
		return nil, err
	}

	return &nodeapi.CacheRequest{
		RequestID: requestID,
		ClientID:  clientID,
		CacheName: fields["cacheName"].GetStringValue(),
		Op:        op,
		Key:       fields["key"].GetStringValue(),
		Value:     value,
		Flags:     fromStringList(fields["flags"]),
	}, nil
}

func ToProtoCacheResult(res *nodeapi.CacheResult) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"value": encodeBytes(res.Value),
			"found": structpb.NewBoolValue(res.Found),
		},
	}
}

func FromProtoCacheResult(s *structpb.Struct) (*nodeapi.CacheResult, error) {
	value, err := decodeBytes(s.GetFields()["value"])
	if err != nil {
		return nil, err
	}

	return &nodeapi.CacheResult{
		Value: value,
		Found: s.GetFields()["found"].GetBoolValue(),
	}, nil
}

func ToProtoTaskRequest(req *nodeapi.TaskRequest) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"requestId": structpb.NewStringValue(req.RequestID.String()),
			"clientId":  structpb.NewStringValue(req.ClientID.String()),
			"taskName":  structpb.NewStringValue(req.TaskName),
			"arg":       encodeBytes(req.Arg),
		},
	}
}

func FromProtoTaskRequest(s *structpb.Struct) (*nodeapi.TaskRequest, error) {
	requestID, err := decodeUUID(s, "requestId")
	if err != nil {
		return nil, err
	}

	clientID, err := decodeUUID(s, "clientId")
	if err != nil {
		return nil, err
	}

	arg, err := decodeBytes(s.GetFields()["arg"])
	if err != nil {
		return nil, err
	}

	return &nodeapi.TaskRequest{
		RequestID: requestID,
		ClientID:  clientID,
		TaskName:  s.GetFields()["taskName"].GetStringValue(),
		Arg:       arg,
	}, nil
}

func ToProtoTaskResult(res *nodeapi.TaskResult) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"result": encodeBytes(res.Result),
		},
	}
}

func FromProtoTaskResult(s *structpb.Struct) (*nodeapi.TaskResult, error) {
	result, err := decodeBytes(s.GetFields()["result"])
	if err != nil {
		return nil, err
	}

	return &nodeapi.TaskResult{Result: result}, nil
}
