package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/srfabric/srctl/pkg/srouting/fabric"
)

// topologyLinkEntry is one link in topology.yaml: endpoints are
// "device:port" pairs.
type topologyLinkEntry struct {
	Endpoints []string `yaml:"endpoints"`
}

// topologyFileDoc is the on-disk shape of topology.yaml: the device/link
// graph srctl simulates against when no live FabricView is wired in.
type topologyFileDoc struct {
	Devices []string            `yaml:"devices"`
	Links   []topologyLinkEntry `yaml:"links"`
}

// loadTopology reads topology.yaml and returns a populated MemView.
func loadTopology(path string) (*fabric.MemView, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading topology %s: %w", path, err)
	}

	var doc topologyFileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing topology %s: %w", path, err)
	}

	view := fabric.NewMemView()
	for _, d := range doc.Devices {
		view.AddDevice(fabric.DeviceID(d))
		view.SetMaster(fabric.DeviceID(d), true)
	}

	for i, l := range doc.Links {
		if len(l.Endpoints) != 2 {
			return nil, fmt.Errorf("link %d: want 2 endpoints, got %d", i, len(l.Endpoints))
		}
		a, err := parseEndpoint(l.Endpoints[0])
		if err != nil {
			return nil, fmt.Errorf("link %d: %w", i, err)
		}
		b, err := parseEndpoint(l.Endpoints[1])
		if err != nil {
			return nil, fmt.Errorf("link %d: %w", i, err)
		}
		view.AddLink(fabric.Link{Src: a, Dst: b})
	}

	return view, nil
}

func parseEndpoint(s string) (fabric.Endpoint, error) {
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			return fabric.Endpoint{
				Device: fabric.DeviceID(s[:i]),
				Port:   fabric.PortID(s[i+1:]),
			}, nil
		}
	}
	return fabric.Endpoint{}, fmt.Errorf("endpoint %q: want device:port", s)
}
