package dag

// Description is a serialisable summary of a graph, shaped the way it was
// built.
type Description struct {
	ID        string                `yaml:"id" json:"id"`
	Subgraphs []SubgraphDescription `yaml:"subgraphs" json:"subgraphs"`
}

// SubgraphDescription summarises one subgraph.
type SubgraphDescription struct {
	ID        string                `yaml:"id" json:"id"`
	Instance  string                `yaml:"instance,omitempty" json:"instance,omitempty"`
	DependsOn []string              `yaml:"depends_on,omitempty" json:"depends_on,omitempty"`
	Tasks     []TaskDescription     `yaml:"tasks,omitempty" json:"tasks,omitempty"`
	Subgraphs []SubgraphDescription `yaml:"subgraphs,omitempty" json:"subgraphs,omitempty"`
}

// TaskDescription summarises one task.
type TaskDescription struct {
	ID        string   `yaml:"id" json:"id"`
	Kind      string   `yaml:"kind" json:"kind"`
	Instance  string   `yaml:"instance" json:"instance"`
	Name      string   `yaml:"name" json:"name"`
	DependsOn []string `yaml:"depends_on,omitempty" json:"depends_on,omitempty"`
}

// Describe summarises the graph.
func (g *Graph) Describe() Description {
	d := Description{ID: g.id}
	for _, s := range g.Subgraphs() {
		d.Subgraphs = append(d.Subgraphs, g.describeSubgraph(s))
	}
	return d
}

func (g *Graph) describeSubgraph(s *Subgraph) SubgraphDescription {
	d := SubgraphDescription{
		ID:        s.id,
		Instance:  s.instanceID,
		DependsOn: g.deps[s.id],
	}
	for _, id := range s.members {
		if t, ok := g.tasks[id]; ok {
			d.Tasks = append(d.Tasks, TaskDescription{
				ID:        t.ID(),
				Kind:      t.Kind().String(),
				Instance:  t.InstanceID(),
				Name:      t.Name(),
				DependsOn: g.deps[id],
			})
			continue
		}
		d.Subgraphs = append(d.Subgraphs, g.describeSubgraph(g.subgraphs[id]))
	}
	return d
}
