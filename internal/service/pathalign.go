package service

import "github.com/apetrenko/linkgraph/internal/domain"

// alignPathEdge corrects one stored edge to the traversal direction between
// two adjacent path nodes. A forward edge is returned unchanged; an edge
// stored against the traversal is flipped, swapping SENT and RECEIVED_BY so
// the reported type still points Source -> Target. ok is false when the
// stored endpoints match neither orientation.
func alignPathEdge(stored domain.PathEdge, prevID, nextID string) (domain.PathEdge, bool) {
	switch {
	case stored.Source == prevID && stored.Target == nextID:
		return stored, true
	case stored.Source == nextID && stored.Target == prevID:
		return domain.PathEdge{
			Type:   flipEdgeType(stored.Type),
			Source: prevID,
			Target: nextID,
		}, true
	default:
		return domain.PathEdge{}, false
	}
}

func flipEdgeType(edgeType string) string {
	switch edgeType {
	case domain.EdgeSent:
		return domain.EdgeReceivedBy
	case domain.EdgeReceivedBy:
		return domain.EdgeSent
	default:
		return edgeType
	}
}
