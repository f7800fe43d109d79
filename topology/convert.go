package topology

import (
	"github.com/maxpoletaev/gridclient/nodeapi"
)

func FromNodeInfo(info *nodeapi.NodeInfo) Node {
	return Node{
		ID:         NodeID(info.ID),
		Addrs:      info.Addrs,
		Attributes: info.Attributes,
		Metrics:    info.Metrics,
	}
}

func FromNodeInfoList(infos []nodeapi.NodeInfo) []Node {
	res := make([]Node, len(infos))
	for i := range infos {
		res[i] = FromNodeInfo(&infos[i])
	}

	return res
}
