package repository

import (
	"context"
	"fmt"

	"github.com/apetrenko/linkgraph/internal/domain"
)

// RawShortestPathBetweenPersons runs an undirected shortest-path search over
// the SENT/RECEIVED_BY flow edges only. Edge endpoints come back as stored,
// not as traversed; the caller is responsible for direction correction. found
// is false when no path connects the two persons.
func (r *Repository) RawShortestPathBetweenPersons(ctx context.Context, fromID, toID string) (domain.RawPath, bool, error) {
	params := map[string]any{
		"fromPersonId": fromID,
		"toPersonId":   toID,
	}

	res, err := r.client.ExecuteRead(ctx, shortestPathCypher, params)
	if err != nil {
		return domain.RawPath{}, false, fmt.Errorf("shortest path %s -> %s: %w", fromID, toID, err)
	}
	if len(res.Records) == 0 {
		return domain.RawPath{}, false, nil
	}

	rec := res.Records[0]
	path := domain.RawPath{Hops: toInt(rec["hops"])}

	if rawNodes, ok := rec["nodes"].([]any); ok {
		for _, item := range rawNodes {
			node := toMap(item)
			if node == nil {
				continue
			}
			path.Nodes = append(path.Nodes, domain.PathNode{
				ID:    toString(node["id"]),
				Kind:  toString(node["kind"]),
				Label: toString(node["label"]),
			})
		}
	}

	if rawEdges, ok := rec["edges"].([]any); ok {
		for _, item := range rawEdges {
			edge := toMap(item)
			if edge == nil {
				continue
			}
			path.Edges = append(path.Edges, domain.PathEdge{
				Type:   toString(edge["type"]),
				Source: toString(edge["source"]),
				Target: toString(edge["target"]),
			})
		}
	}

	return path, true, nil
}

const shortestPathCypher = `
MATCH (a:Person {personId: $fromPersonId}), (b:Person {personId: $toPersonId})
MATCH path = shortestPath((a)-[:SENT|RECEIVED_BY*]-(b))
RETURN [n IN nodes(path) | {
           id: coalesce(n.personId, n.transferId),
           kind: CASE WHEN n:Person THEN 'Person' ELSE 'Transfer' END,
           label: CASE WHEN n:Person THEN n.firstName + ' ' + n.lastName ELSE n.transferType END
       }] AS nodes,
       [r IN relationships(path) | {
           type: type(r),
           source: coalesce(startNode(r).personId, startNode(r).transferId),
           target: coalesce(endNode(r).personId, endNode(r).transferId)
       }] AS edges,
       length(path) AS hops
`
