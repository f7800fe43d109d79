package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/maxpoletaev/gridclient/topology"
)

type nodeView struct {
	ID    string   `json:"id" yaml:"id" toml:"id"`
	Addrs []string `json:"addrs" yaml:"addrs" toml:"addrs"`
}

type topologyView struct {
	Hash  string     `json:"hash" yaml:"hash" toml:"hash"`
	Nodes []nodeView `json:"nodes" yaml:"nodes" toml:"nodes"`
}

func newTopologyView(snap *topology.Snapshot) topologyView {
	view := topologyView{
		Hash:  fmt.Sprintf("%016x", snap.Hash()),
		Nodes: make([]nodeView, 0, snap.Len()),
	}

	for _, node := range snap.Nodes() {
		view.Nodes = append(view.Nodes, nodeView{
			ID:    node.ID.String(),
			Addrs: node.Addrs,
		})
	}

	return view
}

func writeTopology(w io.Writer, format string, snap *topology.Snapshot) error {
	view := newTopologyView(snap)

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(view)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)

		if err := enc.Encode(view); err != nil {
			return err
		}

		return enc.Close()
	case "toml":
		return toml.NewEncoder(w).Encode(view)
	default:
		return fmt.Errorf("unknown output format: %q", format)
	}
}
