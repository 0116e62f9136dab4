package hcl_adapter

import "github.com/hashicorp/hcl/v2"

// fileRoot is a struct used to decode all possible top-level blocks from any file.
type fileRoot struct {
	Nodes     []*nodeBlock     `hcl:"node,block"`
	Instances []*instanceBlock `hcl:"instance,block"`
	Remain    hcl.Body         `hcl:",remain"`
}

type nodeBlock struct {
	ID            string               `hcl:"id,label"`
	Types         []string             `hcl:"types,optional"`
	Properties    hcl.Expression       `hcl:"properties,optional"`
	Operations    []*operationBlock    `hcl:"operation,block"`
	Relationships []*relationshipBlock `hcl:"relationship,block"`
}

type operationBlock struct {
	Name           string         `hcl:"name,label"`
	Implementation string         `hcl:"implementation,optional"`
	Inputs         hcl.Expression `hcl:"inputs,optional"`
}

type relationshipBlock struct {
	Type             string            `hcl:"type,label"`
	Target           string            `hcl:"target"`
	Properties       hcl.Expression    `hcl:"properties,optional"`
	SourceOperations []*operationBlock `hcl:"source_operation,block"`
	TargetOperations []*operationBlock `hcl:"target_operation,block"`
}

type instanceBlock struct {
	ID                string             `hcl:"id,label"`
	Node              string             `hcl:"node"`
	State             string             `hcl:"state,optional"`
	RuntimeProperties hcl.Expression     `hcl:"runtime_properties,optional"`
	Connections       []*connectionBlock `hcl:"relationship,block"`
}

type connectionBlock struct {
	Type   string `hcl:"type,label"`
	Target string `hcl:"target"`
}
