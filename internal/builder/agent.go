package builder

import (
	"github.com/specialistvlad/instancegraph/internal/dag"
	"github.com/specialistvlad/instancegraph/internal/model"
)

var scriptInstallMethods = map[string]struct{}{
	InstallMethodScript:   {},
	InstallMethodProvided: {},
}

// hostPreStop stops and removes the monitoring agent and the host agent of a
// compute host before the host itself is stopped.
func hostPreStop(g *dag.Graph, inst *model.NodeInstance) []dag.Vertex {
	var out []dag.Vertex
	out = append(out, skipNop(g.Operation(inst, OpMonitoringAgentStop, nil), nil, nil)...)
	out = append(out, skipNop(g.Operation(inst, OpMonitoringAgentUninstall, nil), nil, nil)...)

	method := InstallMethod(inst.Node)
	if method == InstallMethodNone {
		return out
	}

	stopOp, deleteOp := OpAgentStop, OpAgentDelete
	switch {
	case isScriptMethod(method):
		stopOp = OpAgentStopAMQP
	case inst.Node.Operations.Has(OpWorkerInstallerStop):
		stopOp, deleteOp = OpWorkerInstallerStop, OpWorkerInstallerUninstall
	}

	out = append(out, g.Event(inst, MsgStoppingAgent))
	out = append(out, skipNop(g.Operation(inst, stopOp, nil), nil, nil)...)
	out = append(out, skipNop(g.Operation(inst, deleteOp, nil), g.Event(inst, MsgDeletingAgent), nil)...)
	out = append(out, g.Event(inst, MsgAgentDeleted))
	return out
}

func isScriptMethod(method string) bool {
	_, ok := scriptInstallMethods[method]
	return ok
}

// InstallMethod reads how the agent of a host node was installed. The
// agent_config property wins over the older cloudify_agent one; a host with
// install_agent set to false has no agent.
func InstallMethod(n *model.Node) string {
	for _, key := range []string{"agent_config", "cloudify_agent"} {
		cfg, ok := n.Properties[key].(map[string]any)
		if !ok {
			continue
		}
		if method, ok := cfg["install_method"].(string); ok && method != "" {
			return method
		}
	}
	if install, ok := n.Properties["install_agent"].(bool); ok && !install {
		return InstallMethodNone
	}
	return InstallMethodRemote
}
