package domain

// PathNode is a node on a discovered path, tagged with its entity kind.
type PathNode struct {
	ID    string
	Kind  string // "Person" or "Transfer"
	Label string
}

// PathEdge is an edge on a discovered path. Source and Target always follow
// the logical direction of the edge type: SENT points Person -> Transfer,
// RECEIVED_BY points Transfer -> Person.
type PathEdge struct {
	Type   string
	Source string
	Target string
}

// RawPath is the storage-level result of a shortest-path query: the ordered
// node sequence, the stored edges in traversal order (endpoints as persisted,
// not corrected for traversal direction), and the hop count.
type RawPath struct {
	Nodes []PathNode
	Edges []PathEdge
	Hops  int
}

// Path is a direction-corrected shortest path between two persons.
// len(Edges) always equals Length.
type Path struct {
	FromPersonID string
	ToPersonID   string
	Nodes        []PathNode
	Edges        []PathEdge
	Length       int
}
