package hcl_adapter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/instancegraph/internal/ctxlog"
	"github.com/specialistvlad/instancegraph/internal/fsutil"
	"github.com/specialistvlad/instancegraph/internal/model"
	"github.com/specialistvlad/instancegraph/internal/propertystore"
	"github.com/specialistvlad/instancegraph/internal/topologystore"
)

// Snapshot is a loaded deployment: node templates and their instances in
// declaration order.
type Snapshot struct {
	Nodes     []*model.Node
	Instances []*model.NodeInstance
}

// Loader reads snapshots from HCL files.
type Loader struct{}

// NewLoader creates a new HCL snapshot loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file found under paths and resolves the blocks
// into one snapshot. Nodes may be referenced from any file.
func (l *Loader) Load(ctx context.Context, paths ...string) (*Snapshot, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	hclFiles, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	parser := hclparse.NewParser()
	var nodeBlocks []*nodeBlock
	var instanceBlocks []*instanceBlock
	for _, file := range hclFiles {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}
		nodeBlocks = append(nodeBlocks, root.Nodes...)
		instanceBlocks = append(instanceBlocks, root.Instances...)
	}

	snap, err := resolve(nodeBlocks, instanceBlocks)
	if err != nil {
		return nil, err
	}
	logger.Debug("HCL loading complete.", "nodes", len(snap.Nodes), "instances", len(snap.Instances))
	return snap, nil
}

// findAllHCLFiles walks all given paths and returns a flat list of all .hcl files found.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, wasSeen := seen[p]; !wasSeen {
			allFiles = append(allFiles, p)
			seen[p] = struct{}{}
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue // It's not an error if a configured path doesn't exist.
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if !info.IsDir() {
			if filepath.Ext(path) == ".hcl" {
				add(path)
			}
			continue
		}
		files, err := fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			add(f)
		}
	}
	return allFiles, nil
}

// Populate registers the snapshot in a topology store and, when props is
// not nil, seeds the runtime properties of every instance.
func (s *Snapshot) Populate(ctx context.Context, topo topologystore.Store, props propertystore.Store) error {
	for _, n := range s.Nodes {
		if err := topo.AddNode(ctx, n); err != nil {
			return fmt.Errorf("failed to add node %s: %w", n.ID, err)
		}
	}
	for _, inst := range s.Instances {
		if err := topo.AddInstance(ctx, inst); err != nil {
			return fmt.Errorf("failed to add node instance %s: %w", inst.ID, err)
		}
		if props == nil || len(inst.RuntimeProperties) == 0 {
			continue
		}
		if err := props.Update(ctx, inst.ID, inst.RuntimeProperties); err != nil {
			return fmt.Errorf("failed to seed runtime properties of %s: %w", inst.ID, err)
		}
	}
	return nil
}
